package store

import (
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"supportflow/internal/pipeline"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "supportflow.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTicket() *Ticket {
	return &Ticket{
		CustomerEmail: "john@example.com",
		CustomerName:  "John",
		Subject:       "Refund for my keyboard",
		Message:       "I would like a refund for order ORD-001",
		OrderID:       "ORD-001",
	}
}

func TestCreateAndGetTicket(t *testing.T) {
	s := testStore(t)

	tk := sampleTicket()
	require.NoError(t, s.CreateTicket(tk))
	assert.Positive(t, tk.ID)
	assert.Regexp(t, regexp.MustCompile(`^TKT-\d{6}$`), tk.TicketNumber)
	assert.Equal(t, StatusNew, tk.Status)
	assert.Equal(t, "medium", tk.Priority)

	got, err := s.GetTicket(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.TicketNumber, got.TicketNumber)
	assert.Equal(t, "john@example.com", got.CustomerEmail)
	assert.Equal(t, "ORD-001", got.OrderID)
	assert.Nil(t, got.ResolvedAt)

	byNum, err := s.GetTicketByNumber(tk.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, tk.ID, byNum.ID)
}

func TestGetTicket_NotFound(t *testing.T) {
	s := testStore(t)

	_, err := s.GetTicket(42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetTicketByNumber("TKT-000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTicketMetadataRoundTrip(t *testing.T) {
	s := testStore(t)

	tk := sampleTicket()
	tk.Metadata = map[string]any{"error": "upstream 500", "attempts": float64(2)}
	require.NoError(t, s.CreateTicket(tk))

	got, err := s.GetTicket(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, tk.Metadata, got.Metadata)
}

func TestListTickets_FilterAndOrder(t *testing.T) {
	s := testStore(t)

	for i := 0; i < 3; i++ {
		tk := sampleTicket()
		require.NoError(t, s.CreateTicket(tk))
	}
	escalated := sampleTicket()
	escalated.Status = StatusWaitingHuman
	require.NoError(t, s.CreateTicket(escalated))

	all, err := s.ListTickets("", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	waiting, err := s.ListTickets(StatusWaitingHuman, 0, 0)
	require.NoError(t, err)
	require.Len(t, waiting, 1)
	assert.Equal(t, escalated.ID, waiting[0].ID)

	paged, err := s.ListTickets("", 1, 2)
	require.NoError(t, err)
	assert.Len(t, paged, 2)
}

func TestUpdateTicket(t *testing.T) {
	s := testStore(t)

	tk := sampleTicket()
	require.NoError(t, s.CreateTicket(tk))

	status := StatusResolved
	intent := "refund_request"
	confidence := 0.86
	finalResponse := "Your refund is on the way."
	approved := true

	got, err := s.UpdateTicket(tk.ID, TicketUpdate{
		Status:           &status,
		Intent:           &intent,
		Confidence:       &confidence,
		FinalResponse:    &finalResponse,
		ResponseApproved: &approved,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusResolved, got.Status)
	assert.Equal(t, "refund_request", got.Intent)
	assert.InDelta(t, 0.86, got.Confidence, 1e-9)
	assert.Equal(t, finalResponse, got.FinalResponse)
	assert.True(t, got.ResponseApproved)
	require.NotNil(t, got.ResolvedAt, "resolving must stamp resolved_at")

	// Untouched fields survive a partial update.
	reread, err := s.GetTicket(tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Refund for my keyboard", reread.Subject)
	assert.Equal(t, got.ResolvedAt.Unix(), reread.ResolvedAt.Unix())
}

func TestUpdateTicket_NotFound(t *testing.T) {
	s := testStore(t)

	status := StatusClosed
	_, err := s.UpdateTicket(99, TicketUpdate{Status: &status})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteTicket_CascadesTracesAndMessages(t *testing.T) {
	s := testStore(t)

	tk := sampleTicket()
	require.NoError(t, s.CreateTicket(tk))
	require.NoError(t, s.SaveTraces(tk.ID, []pipeline.TraceRecord{
		{Stage: pipeline.StageTriage, StepNumber: 1, Confidence: 0.9, ToolsUsed: []string{}},
	}))
	require.NoError(t, s.AddMessage(&Message{TicketID: tk.ID, Role: RoleCustomer, Content: "hi"}))

	require.NoError(t, s.DeleteTicket(tk.ID))

	_, err := s.GetTicket(tk.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	traces, err := s.ListTraces(tk.ID)
	require.NoError(t, err)
	assert.Empty(t, traces)

	messages, err := s.ListMessages(tk.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)

	assert.ErrorIs(t, s.DeleteTicket(tk.ID), ErrNotFound)
}

func TestSaveAndListTraces(t *testing.T) {
	s := testStore(t)

	tk := sampleTicket()
	require.NoError(t, s.CreateTicket(tk))

	records := []pipeline.TraceRecord{
		{
			Stage:      pipeline.StageTriage,
			StepNumber: 1,
			Input:      map[string]any{"subject": tk.Subject},
			Output:     &pipeline.TriageResult{Intent: "refund_request", Priority: pipeline.PriorityMedium, Confidence: 0.9},
			Reasoning:  "clear refund request",
			Confidence: 0.9,
			ToolsUsed:  []string{},
			DurationMs: 120,
		},
		{
			Stage:      pipeline.StagePolicy,
			StepNumber: 2,
			Confidence: 0.8,
			ToolsUsed:  []string{"get_order_details", "check_refund_eligibility"},
			DurationMs: 45,
		},
	}
	require.NoError(t, s.SaveTraces(tk.ID, records))

	traces, err := s.ListTraces(tk.ID)
	require.NoError(t, err)
	require.Len(t, traces, 2)

	assert.Equal(t, pipeline.StageTriage, traces[0].AgentName)
	assert.Equal(t, 1, traces[0].StepNumber)
	assert.Equal(t, "clear refund request", traces[0].Reasoning)
	assert.Equal(t, int64(120), traces[0].ExecutionTimeMs)
	assert.Contains(t, string(traces[0].OutputData), `"refund_request"`)
	assert.Empty(t, traces[0].ToolsUsed)

	assert.Equal(t, pipeline.StagePolicy, traces[1].AgentName)
	assert.Equal(t, []string{"get_order_details", "check_refund_eligibility"}, traces[1].ToolsUsed)
}

func TestMessages(t *testing.T) {
	s := testStore(t)

	tk := sampleTicket()
	require.NoError(t, s.CreateTicket(tk))

	require.NoError(t, s.AddMessage(&Message{
		TicketID: tk.ID, Role: RoleCustomer, Content: "Where is my refund?", SenderName: "John",
	}))
	require.NoError(t, s.AddMessage(&Message{
		TicketID: tk.ID, Role: RoleAgent, Content: "It is on the way.",
	}))

	messages, err := s.ListMessages(tk.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, RoleCustomer, messages[0].Role)
	assert.Equal(t, "John", messages[0].SenderName)
	assert.Equal(t, RoleAgent, messages[1].Role)
	assert.Empty(t, messages[1].SenderName)
}

func TestStats(t *testing.T) {
	s := testStore(t)

	resolved := StatusResolved
	for i := 0; i < 3; i++ {
		tk := sampleTicket()
		require.NoError(t, s.CreateTicket(tk))
		intent := "refund_request"
		confidence := 0.8
		_, err := s.UpdateTicket(tk.ID, TicketUpdate{
			Status: &resolved, Intent: &intent, Confidence: &confidence,
		})
		require.NoError(t, err)
		require.NoError(t, s.SaveTraces(tk.ID, []pipeline.TraceRecord{
			{Stage: pipeline.StageTriage, StepNumber: 1, Confidence: 0.8, ToolsUsed: []string{}, DurationMs: 100},
			{Stage: pipeline.StageResponse, StepNumber: 2, Confidence: 0.8, ToolsUsed: []string{}, DurationMs: 200},
		}))
	}
	escalated := sampleTicket()
	escalated.Status = StatusWaitingHuman
	require.NoError(t, s.CreateTicket(escalated))

	stats, err := s.Stats()
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalTickets)
	assert.Equal(t, 3, stats.StatusBreakdown[string(StatusResolved)])
	assert.Equal(t, 1, stats.StatusBreakdown[string(StatusWaitingHuman)])
	assert.Equal(t, 4, stats.PriorityBreakdown["medium"])
	assert.InDelta(t, 25.0, stats.EscalationRatePercent, 1e-9)
	assert.Equal(t, 3, stats.TopIntents["refund_request"])

	triage := stats.AgentPerformance[pipeline.StageTriage]
	assert.Equal(t, 3, triage.TotalExecutions)
	assert.InDelta(t, 100.0, triage.AvgExecutionTimeMs, 1e-9)
}

func TestGenerateTicketNumber(t *testing.T) {
	re := regexp.MustCompile(`^TKT-[1-9]\d{5}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, re, GenerateTicketNumber())
	}
}
