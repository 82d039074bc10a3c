package pipeline

import "fmt"

// PipelineError reports a fatal stage failure that aborted the run. The
// caller is responsible for routing the ticket to human review; the
// pipeline never fabricates a partial result.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline stage %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}
