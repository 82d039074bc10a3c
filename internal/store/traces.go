package store

import (
	"encoding/json"
	"fmt"
	"time"

	"supportflow/internal/pipeline"
)

// AgentTrace is a persisted pipeline trace record. Traces are write-once:
// appended when the pipeline finishes and retained verbatim for the life
// of the ticket.
type AgentTrace struct {
	ID              int64           `json:"id"`
	TicketID        int64           `json:"ticket_id"`
	AgentName       string          `json:"agent_name"`
	StepNumber      int             `json:"step_number"`
	InputData       json.RawMessage `json:"input_data,omitempty"`
	OutputData      json.RawMessage `json:"output_data,omitempty"`
	Reasoning       string          `json:"reasoning,omitempty"`
	Confidence      float64         `json:"confidence"`
	ToolsUsed       []string        `json:"tools_used"`
	ExecutionTimeMs int64           `json:"execution_time_ms"`
	CreatedAt       time.Time       `json:"created_at"`
}

// SaveTraces persists a pipeline run's trace records for a ticket, in
// order, within one transaction.
func (s *Store) SaveTraces(ticketID int64, traces []pipeline.TraceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, tr := range traces {
		input, err := json.Marshal(tr.Input)
		if err != nil {
			return fmt.Errorf("failed to encode trace input: %w", err)
		}
		output, err := json.Marshal(tr.Output)
		if err != nil {
			return fmt.Errorf("failed to encode trace output: %w", err)
		}
		toolsUsed, err := json.Marshal(tr.ToolsUsed)
		if err != nil {
			return fmt.Errorf("failed to encode trace tools: %w", err)
		}

		_, err = tx.Exec(`
			INSERT INTO agent_traces (ticket_id, agent_name, step_number, input_data,
				output_data, reasoning, confidence, tools_used, execution_time_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ticketID, tr.Stage, tr.StepNumber, string(input), string(output),
			tr.Reasoning, tr.Confidence, string(toolsUsed), tr.DurationMs, now)
		if err != nil {
			return fmt.Errorf("failed to insert trace: %w", err)
		}
	}

	return tx.Commit()
}

// ListTraces returns a ticket's traces in execution order.
func (s *Store) ListTraces(ticketID int64) ([]AgentTrace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, ticket_id, agent_name, step_number, input_data, output_data,
			reasoning, confidence, tools_used, execution_time_ms, created_at
		FROM agent_traces WHERE ticket_id = ? ORDER BY step_number`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list traces: %w", err)
	}
	defer rows.Close()

	var traces []AgentTrace
	for rows.Next() {
		var (
			tr        AgentTrace
			input     string
			output    string
			toolsUsed string
		)
		if err := rows.Scan(&tr.ID, &tr.TicketID, &tr.AgentName, &tr.StepNumber,
			&input, &output, &tr.Reasoning, &tr.Confidence, &toolsUsed,
			&tr.ExecutionTimeMs, &tr.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trace: %w", err)
		}
		tr.InputData = json.RawMessage(input)
		tr.OutputData = json.RawMessage(output)
		if toolsUsed != "" {
			if err := json.Unmarshal([]byte(toolsUsed), &tr.ToolsUsed); err != nil {
				return nil, fmt.Errorf("failed to decode trace tools: %w", err)
			}
		}
		traces = append(traces, tr)
	}
	return traces, rows.Err()
}
