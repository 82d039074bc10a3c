package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strconv"

	"go.uber.org/zap"

	"supportflow/internal/pipeline"
	"supportflow/internal/store"
)

// TicketCreate is the ticket creation request body.
type TicketCreate struct {
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name"`
	Subject       string `json:"subject"`
	Message       string `json:"message"`
	OrderID       string `json:"order_id,omitempty"`
}

func (t *TicketCreate) validate() error {
	if _, err := mail.ParseAddress(t.CustomerEmail); err != nil {
		return fmt.Errorf("customer_email is not a valid address")
	}
	if t.CustomerName == "" {
		return fmt.Errorf("customer_name is required")
	}
	if t.Subject == "" {
		return fmt.Errorf("subject is required")
	}
	if t.Message == "" {
		return fmt.Errorf("message is required")
	}
	return nil
}

// TicketUpdateRequest is the PATCH body for admin updates.
type TicketUpdateRequest struct {
	Status           *store.TicketStatus `json:"status,omitempty"`
	Priority         *string             `json:"priority,omitempty"`
	FinalResponse    *string             `json:"final_response,omitempty"`
	ResponseApproved *bool               `json:"response_approved,omitempty"`
}

// ticketDetail is a ticket with its traces and conversation attached.
type ticketDetail struct {
	store.Ticket
	AgentTraces []store.AgentTrace `json:"agent_traces"`
	Messages    []store.Message    `json:"messages"`
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req TicketCreate
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.validate(); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	ticket := &store.Ticket{
		CustomerEmail: req.CustomerEmail,
		CustomerName:  req.CustomerName,
		Subject:       req.Subject,
		Message:       req.Message,
		OrderID:       req.OrderID,
		Status:        store.StatusInProgress,
	}
	if err := s.store.CreateTicket(ticket); err != nil {
		s.logger.Error("ticket insert failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to create ticket")
		return
	}

	result, err := s.runner.Run(r.Context(), pipeline.TicketInput{
		TicketID:      ticket.ID,
		CustomerEmail: ticket.CustomerEmail,
		CustomerName:  ticket.CustomerName,
		Subject:       ticket.Subject,
		Message:       ticket.Message,
		OrderID:       ticket.OrderID,
	})
	if err != nil {
		// Failed-to-automate: mandatory human review, error recorded.
		s.logger.Warn("pipeline failed for ticket",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err))
		failed := store.StatusWaitingHuman
		if _, uerr := s.store.UpdateTicket(ticket.ID, store.TicketUpdate{
			Status:   &failed,
			Metadata: map[string]any{"error": err.Error()},
		}); uerr != nil {
			s.logger.Error("failed to mark ticket for review", zap.Error(uerr))
		}
		s.writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("Agent workflow failed: %v", err))
		return
	}

	upd := store.TicketUpdate{
		AIResponse: &result.FinalResponse,
		Confidence: &result.OverallConfidence,
	}
	if result.Triage != nil {
		intent := result.Triage.Intent
		priority := string(result.Triage.Priority)
		upd.Intent = &intent
		upd.Priority = &priority
	}
	if result.RequiresHuman {
		status := store.StatusWaitingHuman
		upd.Status = &status
	} else {
		status := store.StatusResolved
		approved := true
		upd.Status = &status
		upd.FinalResponse = &result.FinalResponse
		upd.ResponseApproved = &approved
	}

	updated, err := s.store.UpdateTicket(ticket.ID, upd)
	if err != nil {
		s.logger.Error("ticket update failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to update ticket")
		return
	}
	if err := s.store.SaveTraces(ticket.ID, result.Traces); err != nil {
		s.logger.Error("trace persistence failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to save traces")
		return
	}

	s.writeJSON(w, http.StatusCreated, updated)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	status := store.TicketStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown status filter")
		return
	}
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)

	tickets, err := s.store.ListTickets(status, skip, limit)
	if err != nil {
		s.logger.Error("ticket list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []store.Ticket{}
	}
	s.writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	ticket, err := s.store.GetTicket(id)
	if err != nil {
		s.respondNotFoundOrError(w, err)
		return
	}
	s.respondTicketDetail(w, ticket)
}

func (s *Server) handleGetTicketByNumber(w http.ResponseWriter, r *http.Request) {
	ticket, err := s.store.GetTicketByNumber(r.PathValue("number"))
	if err != nil {
		s.respondNotFoundOrError(w, err)
		return
	}
	s.respondTicketDetail(w, ticket)
}

func (s *Server) respondTicketDetail(w http.ResponseWriter, ticket *store.Ticket) {
	traces, err := s.store.ListTraces(ticket.ID)
	if err != nil {
		s.logger.Error("trace list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load traces")
		return
	}
	messages, err := s.store.ListMessages(ticket.ID)
	if err != nil {
		s.logger.Error("message list failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "failed to load messages")
		return
	}
	if traces == nil {
		traces = []store.AgentTrace{}
	}
	if messages == nil {
		messages = []store.Message{}
	}
	s.writeJSON(w, http.StatusOK, ticketDetail{
		Ticket:      *ticket,
		AgentTraces: traces,
		Messages:    messages,
	})
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}

	var req TicketUpdateRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		s.writeError(w, http.StatusUnprocessableEntity, "unknown status")
		return
	}

	ticket, err := s.store.UpdateTicket(id, store.TicketUpdate{
		Status:           req.Status,
		Priority:         req.Priority,
		FinalResponse:    req.FinalResponse,
		ResponseApproved: req.ResponseApproved,
	})
	if err != nil {
		s.respondNotFoundOrError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ticket)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	if err := s.store.DeleteTicket(id); err != nil {
		s.respondNotFoundOrError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respondNotFoundOrError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "Ticket not found")
		return
	}
	s.logger.Error("store operation failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
