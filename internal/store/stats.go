package store

import "fmt"

// AgentStats summarizes one stage's execution history.
type AgentStats struct {
	AvgExecutionTimeMs float64 `json:"avg_execution_time_ms"`
	TotalExecutions    int     `json:"total_executions"`
}

// Stats is the aggregate system statistics projection.
type Stats struct {
	TotalTickets          int                   `json:"total_tickets"`
	StatusBreakdown       map[string]int        `json:"status_breakdown"`
	PriorityBreakdown     map[string]int        `json:"priority_breakdown"`
	AverageConfidence     float64               `json:"average_confidence"`
	EscalationRatePercent float64               `json:"escalation_rate_percent"`
	TopIntents            map[string]int        `json:"top_intents"`
	AgentPerformance      map[string]AgentStats `json:"agent_performance"`
}

// Stats computes the aggregate statistics over all tickets and traces.
func (s *Store) Stats() (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &Stats{
		StatusBreakdown:   make(map[string]int),
		PriorityBreakdown: make(map[string]int),
		TopIntents:        make(map[string]int),
		AgentPerformance:  make(map[string]AgentStats),
	}

	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tickets`).Scan(&out.TotalTickets); err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}

	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	if err := scanCounts(rows, out.StatusBreakdown); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`SELECT priority, COUNT(*) FROM tickets GROUP BY priority`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by priority: %w", err)
	}
	if err := scanCounts(rows, out.PriorityBreakdown); err != nil {
		return nil, err
	}

	if err := s.db.QueryRow(`SELECT COALESCE(AVG(confidence), 0.0) FROM tickets`).Scan(&out.AverageConfidence); err != nil {
		return nil, fmt.Errorf("failed to average confidence: %w", err)
	}

	var humanNeeded int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM tickets WHERE status = ?`,
		string(StatusWaitingHuman)).Scan(&humanNeeded); err != nil {
		return nil, fmt.Errorf("failed to count escalated: %w", err)
	}
	if out.TotalTickets > 0 {
		out.EscalationRatePercent = float64(humanNeeded) / float64(out.TotalTickets) * 100
	}

	rows, err = s.db.Query(`
		SELECT intent, COUNT(*) FROM tickets WHERE intent IS NOT NULL
		GROUP BY intent ORDER BY COUNT(*) DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("failed to count intents: %w", err)
	}
	if err := scanCounts(rows, out.TopIntents); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(`
		SELECT agent_name, AVG(execution_time_ms), COUNT(*)
		FROM agent_traces GROUP BY agent_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate agent stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var st AgentStats
		if err := rows.Scan(&name, &st.AvgExecutionTimeMs, &st.TotalExecutions); err != nil {
			return nil, fmt.Errorf("failed to scan agent stats: %w", err)
		}
		out.AgentPerformance[name] = st
	}
	return out, rows.Err()
}

type countRows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
}

func scanCounts(rows countRows, into map[string]int) error {
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("failed to scan count: %w", err)
		}
		into[key] = count
	}
	return rows.Err()
}
