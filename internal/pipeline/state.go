// Package pipeline implements the agent orchestration core: the shared
// processing state threaded through five sequential stages (triage,
// research, policy, response, escalation), the harness that times stages
// and captures trace records, and the confidence aggregation that yields
// the terminal escalation verdict.
package pipeline

import (
	"fmt"

	"supportflow/internal/tools"
)

// Stage names, in execution order.
const (
	StageTriage     = "triage"
	StageResearch   = "research"
	StagePolicy     = "policy"
	StageResponse   = "response"
	StageEscalation = "escalation"
)

// Priority is the triage-assigned urgency of a ticket.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is one of the four defined levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// TicketInput is the immutable ticket data the pipeline starts from.
type TicketInput struct {
	TicketID      int64
	CustomerEmail string
	CustomerName  string
	Subject       string
	Message       string
	OrderID       string // optional
}

// TriageResult is the structured output of the triage stage.
type TriageResult struct {
	Intent              string   `json:"intent"`
	Priority            Priority `json:"priority"`
	Confidence          float64  `json:"confidence"`
	Reasoning           string   `json:"reasoning"`
	RequiresOrderLookup bool     `json:"requires_order_lookup"`
	SuggestedTags       []string `json:"suggested_tags"`
}

// Validate enforces the triage data contract beyond schema shape.
func (r *TriageResult) Validate() error {
	if r.Intent == "" {
		return fmt.Errorf("intent is empty")
	}
	if !r.Priority.Valid() {
		return fmt.Errorf("priority %q is not one of low/medium/high/urgent", r.Priority)
	}
	return checkConfidence(r.Confidence)
}

// RelevantArticle is a knowledge-base excerpt retained in a research result.
type RelevantArticle struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

// ResearchResult is the structured output of the research stage. The
// article and query lists are computed locally from tool results; the
// generation call contributes only summary and confidence.
type ResearchResult struct {
	RelevantArticles  []RelevantArticle `json:"relevant_articles"`
	SearchQueriesUsed []string          `json:"search_queries_used"`
	Confidence        float64           `json:"confidence"`
	Summary           string            `json:"summary"`
}

func (r *ResearchResult) Validate() error {
	return checkConfidence(r.Confidence)
}

// PolicyResult is the structured output of the policy stage. OrderDetails,
// ActionsTaken and RefundAmount are set locally after generation.
type PolicyResult struct {
	IsEligible   bool         `json:"is_eligible"`
	Reason       string       `json:"reason"`
	OrderDetails *tools.Order `json:"order_details,omitempty"`
	RefundAmount *float64     `json:"refund_amount,omitempty"`
	ActionsTaken []string     `json:"actions_taken"`
	Confidence   float64      `json:"confidence"`
}

func (r *PolicyResult) Validate() error {
	return checkConfidence(r.Confidence)
}

// ResponseResult is the structured output of the response stage.
type ResponseResult struct {
	ResponseText        string   `json:"response_text"`
	Tone                string   `json:"tone"`
	IncludesApology     bool     `json:"includes_apology"`
	ActionItems         []string `json:"includes_action_items"`
	Confidence          float64  `json:"confidence"`
	RequiresHumanReview bool     `json:"requires_human_review"`
}

func (r *ResponseResult) Validate() error {
	if r.ResponseText == "" {
		return fmt.Errorf("response_text is empty")
	}
	return checkConfidence(r.Confidence)
}

// EscalationResult is the structured output of the escalation stage.
// OverallConfidence is always overwritten with the locally computed mean;
// the generation call contributes only the verdict and the reasons.
type EscalationResult struct {
	ShouldEscalate        bool     `json:"should_escalate"`
	Reasons               []string `json:"reasons"`
	OverallConfidence     float64  `json:"overall_confidence"`
	RecommendedSpecialist string   `json:"recommended_specialist,omitempty"`
}

func (r *EscalationResult) Validate() error {
	return checkConfidence(r.OverallConfidence)
}

// checkConfidence rejects scores outside [0,1]; an out-of-range score is a
// data-contract violation by the generation capability.
func checkConfidence(c float64) error {
	if c < 0.0 || c > 1.0 {
		return fmt.Errorf("confidence %v outside [0.0, 1.0]", c)
	}
	return nil
}

// TraceRecord is a write-once audit entry for one executed stage.
type TraceRecord struct {
	Stage      string         `json:"agent_name"`
	StepNumber int            `json:"step_number"`
	Input      map[string]any `json:"input_data"`
	Output     any            `json:"output_data"`
	Reasoning  string         `json:"reasoning"`
	Confidence float64        `json:"confidence"`
	ToolsUsed  []string       `json:"tools_used"`
	DurationMs int64          `json:"execution_time_ms"`
}

// State is the processing record threaded through the stages. The driver
// owns it exclusively for the pipeline's lifetime; each stage receives the
// full state and returns an updated copy. Each output slot is populated at
// most once, by its own stage.
type State struct {
	Ticket TicketInput

	Triage     *TriageResult
	Research   *ResearchResult
	Policy     *PolicyResult
	Response   *ResponseResult
	Escalation *EscalationResult

	// Terminal projection, populated by the response and escalation stages.
	FinalResponse     string
	RequiresHuman     bool
	OverallConfidence float64

	// Traces is append-only; insertion order is execution order.
	Traces []TraceRecord
}

// Result is the driver's final projection returned to the caller.
type Result struct {
	FinalResponse     string
	RequiresHuman     bool
	OverallConfidence float64
	Traces            []TraceRecord

	// Triage carries the classification for ticket enrichment by the
	// caller (intent, priority). Nil only if triage never ran, which a
	// successful pipeline run excludes.
	Triage *TriageResult
}
