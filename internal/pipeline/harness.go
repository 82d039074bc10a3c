package pipeline

import (
	"context"
	"time"
)

// stageFunc is the uniform stage contract: receive the full state, return
// the updated state plus a trace record. A nil trace with a nil error
// means the stage chose to no-op (missing prerequisite); no trace is
// appended for it. On error the returned state is discarded.
type stageFunc func(ctx context.Context, st State) (State, *TraceRecord, error)

// runStage wraps one stage with timing capture and trace bookkeeping.
// Exactly one trace is appended per successful execution, never on
// failure. Step numbers are the 1-based position in the trace sequence.
func (r *Runner) runStage(ctx context.Context, name string, st State, fn stageFunc) (State, error) {
	start := time.Now()

	next, trace, err := fn(ctx, st)
	if err != nil {
		return st, &PipelineError{Stage: name, Err: err}
	}

	if trace != nil {
		trace.Stage = name
		trace.StepNumber = len(next.Traces) + 1
		trace.DurationMs = time.Since(start).Milliseconds()
		if trace.ToolsUsed == nil {
			trace.ToolsUsed = []string{}
		}
		next.Traces = append(next.Traces, *trace)
	}

	return next, nil
}
