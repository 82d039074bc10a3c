package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"
)

// TicketStatus enumerates the ticket lifecycle.
type TicketStatus string

const (
	StatusNew          TicketStatus = "new"
	StatusInProgress   TicketStatus = "in_progress"
	StatusWaitingHuman TicketStatus = "waiting_human"
	StatusResolved     TicketStatus = "resolved"
	StatusClosed       TicketStatus = "closed"
)

// Valid reports whether st is a known status.
func (st TicketStatus) Valid() bool {
	switch st {
	case StatusNew, StatusInProgress, StatusWaitingHuman, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Ticket is a persisted support ticket.
type Ticket struct {
	ID               int64          `json:"id"`
	TicketNumber     string         `json:"ticket_number"`
	CustomerEmail    string         `json:"customer_email"`
	CustomerName     string         `json:"customer_name"`
	Subject          string         `json:"subject"`
	Message          string         `json:"message"`
	Status           TicketStatus   `json:"status"`
	Priority         string         `json:"priority"`
	Intent           string         `json:"intent,omitempty"`
	Confidence       float64        `json:"confidence"`
	AIResponse       string         `json:"ai_response,omitempty"`
	FinalResponse    string         `json:"final_response,omitempty"`
	ResponseApproved bool           `json:"response_approved"`
	OrderID          string         `json:"order_id,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	ResolvedAt       *time.Time     `json:"resolved_at,omitempty"`
}

// TicketUpdate carries the mutable fields of a ticket update; nil fields
// are left unchanged.
type TicketUpdate struct {
	Status           *TicketStatus
	Priority         *string
	Intent           *string
	Confidence       *float64
	AIResponse       *string
	FinalResponse    *string
	ResponseApproved *bool
	Metadata         map[string]any
}

// GenerateTicketNumber returns a random TKT-xxxxxx number.
func GenerateTicketNumber() string {
	return fmt.Sprintf("TKT-%06d", 100000+rand.IntN(900000))
}

// CreateTicket inserts a new ticket, assigning its id, ticket number (if
// unset), and timestamps.
func (s *Store) CreateTicket(t *Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.TicketNumber == "" {
		t.TicketNumber = GenerateTicketNumber()
	}
	if t.Status == "" {
		t.Status = StatusNew
	}
	if t.Priority == "" {
		t.Priority = "medium"
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		INSERT INTO tickets (ticket_number, customer_email, customer_name, subject, message,
			status, priority, intent, confidence, ai_response, final_response,
			response_approved, order_id, metadata, created_at, updated_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TicketNumber, t.CustomerEmail, t.CustomerName, t.Subject, t.Message,
		string(t.Status), t.Priority, nullString(t.Intent), t.Confidence,
		nullString(t.AIResponse), nullString(t.FinalResponse),
		boolToInt(t.ResponseApproved), nullString(t.OrderID), metadata,
		t.CreatedAt, t.UpdatedAt, t.ResolvedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	t.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read ticket id: %w", err)
	}
	return nil
}

// GetTicket fetches a ticket by id.
func (s *Store) GetTicket(id int64) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTicketWhere("id = ?", id)
}

// GetTicketByNumber fetches a ticket by its TKT- number.
func (s *Store) GetTicketByNumber(number string) (*Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTicketWhere("ticket_number = ?", number)
}

const ticketColumns = `id, ticket_number, customer_email, customer_name, subject, message,
	status, priority, intent, confidence, ai_response, final_response,
	response_approved, order_id, metadata, created_at, updated_at, resolved_at`

func (s *Store) getTicketWhere(where string, arg any) (*Ticket, error) {
	row := s.db.QueryRow(`SELECT `+ticketColumns+` FROM tickets WHERE `+where, arg)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return t, nil
}

// ListTickets returns tickets newest-first, optionally filtered by status.
func (s *Store) ListTickets(status TicketStatus, offset, limit int) ([]Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}

	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// UpdateTicket applies the non-nil fields of upd and returns the updated
// ticket. Moving a ticket to resolved stamps resolved_at.
func (s *Store) UpdateTicket(id int64, upd TicketUpdate) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTicketWhere("id = ?", id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		t.Status = *upd.Status
		if *upd.Status == StatusResolved && t.ResolvedAt == nil {
			now := time.Now().UTC()
			t.ResolvedAt = &now
		}
	}
	if upd.Priority != nil {
		t.Priority = *upd.Priority
	}
	if upd.Intent != nil {
		t.Intent = *upd.Intent
	}
	if upd.Confidence != nil {
		t.Confidence = *upd.Confidence
	}
	if upd.AIResponse != nil {
		t.AIResponse = *upd.AIResponse
	}
	if upd.FinalResponse != nil {
		t.FinalResponse = *upd.FinalResponse
	}
	if upd.ResponseApproved != nil {
		t.ResponseApproved = *upd.ResponseApproved
	}
	if upd.Metadata != nil {
		t.Metadata = upd.Metadata
	}
	t.UpdatedAt = time.Now().UTC()

	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(`
		UPDATE tickets SET status = ?, priority = ?, intent = ?, confidence = ?,
			ai_response = ?, final_response = ?, response_approved = ?, metadata = ?,
			updated_at = ?, resolved_at = ?
		WHERE id = ?`,
		string(t.Status), t.Priority, nullString(t.Intent), t.Confidence,
		nullString(t.AIResponse), nullString(t.FinalResponse),
		boolToInt(t.ResponseApproved), metadata, t.UpdatedAt, t.ResolvedAt, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update ticket: %w", err)
	}
	return t, nil
}

// DeleteTicket removes a ticket and, via cascade, its traces and messages.
func (s *Store) DeleteTicket(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*Ticket, error) {
	var (
		ticket           Ticket
		status           string
		intent           sql.NullString
		confidence       sql.NullFloat64
		aiResponse       sql.NullString
		finalResponse    sql.NullString
		responseApproved int
		orderID          sql.NullString
		metadata         sql.NullString
		resolvedAt       sql.NullTime
	)

	err := row.Scan(&ticket.ID, &ticket.TicketNumber, &ticket.CustomerEmail,
		&ticket.CustomerName, &ticket.Subject, &ticket.Message, &status,
		&ticket.Priority, &intent, &confidence, &aiResponse, &finalResponse,
		&responseApproved, &orderID, &metadata, &ticket.CreatedAt,
		&ticket.UpdatedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}

	ticket.Status = TicketStatus(status)
	ticket.Intent = intent.String
	ticket.Confidence = confidence.Float64
	ticket.AIResponse = aiResponse.String
	ticket.FinalResponse = finalResponse.String
	ticket.ResponseApproved = responseApproved != 0
	ticket.OrderID = orderID.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &ticket.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode ticket metadata: %w", err)
		}
	}
	if resolvedAt.Valid {
		ticket.ResolvedAt = &resolvedAt.Time
	}
	return &ticket, nil
}

func encodeMetadata(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
