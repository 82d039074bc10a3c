package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"supportflow/internal/llm"
	"supportflow/internal/tools"
)

// DefaultConfidenceThreshold is used when no threshold is configured.
const DefaultConfidenceThreshold = 0.7

// Runner drives one ticket through the five stages in strict order. It is
// safe for concurrent use across tickets; each Run owns its State
// exclusively and no state is shared between runs.
type Runner struct {
	gen       llm.Generator
	kb        tools.KnowledgeSearcher
	orders    tools.OrderService
	threshold float64
	logger    *zap.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConfidenceThreshold sets the escalation confidence threshold.
func WithConfidenceThreshold(t float64) Option {
	return func(r *Runner) {
		r.threshold = t
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// NewRunner creates a pipeline runner over the given collaborators.
func NewRunner(gen llm.Generator, kb tools.KnowledgeSearcher, orders tools.OrderService, opts ...Option) *Runner {
	r := &Runner{
		gen:       gen,
		kb:        kb,
		orders:    orders,
		threshold: DefaultConfidenceThreshold,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes one ticket through triage, research, policy, response and
// escalation, aborting on the first fatal stage failure. On success the
// returned Result carries the drafted response, the escalation verdict,
// the aggregate confidence, and the ordered trace records. A returned
// error is always a *PipelineError; the caller is responsible for marking
// the ticket for human review.
func (r *Runner) Run(ctx context.Context, in TicketInput) (*Result, error) {
	if in.Subject == "" {
		return nil, &PipelineError{Stage: StageTriage, Err: fmt.Errorf("ticket subject is required")}
	}
	if in.Message == "" {
		return nil, &PipelineError{Stage: StageTriage, Err: fmt.Errorf("ticket message is required")}
	}

	runID := uuid.NewString()
	logger := r.logger.With(
		zap.String("run_id", runID),
		zap.Int64("ticket_id", in.TicketID))

	st := State{
		Ticket: in,
		Traces: []TraceRecord{},
	}

	steps := []struct {
		name string
		fn   stageFunc
	}{
		{StageTriage, r.triage},
		{StageResearch, r.research},
		{StagePolicy, r.policy},
		{StageResponse, r.respond},
		{StageEscalation, r.escalate},
	}

	for _, step := range steps {
		var err error
		st, err = r.runStage(ctx, step.name, st, step.fn)
		if err != nil {
			logger.Warn("pipeline aborted",
				zap.String("stage", step.name),
				zap.Error(err))
			return nil, err
		}
	}

	logger.Info("pipeline completed",
		zap.Bool("requires_human", st.RequiresHuman),
		zap.Float64("overall_confidence", st.OverallConfidence),
		zap.Int("stages", len(st.Traces)))

	return &Result{
		FinalResponse:     st.FinalResponse,
		RequiresHuman:     st.RequiresHuman,
		OverallConfidence: st.OverallConfidence,
		Traces:            st.Traces,
		Triage:            st.Triage,
	}, nil
}
