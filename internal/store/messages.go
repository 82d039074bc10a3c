package store

import (
	"fmt"
	"time"
)

// MessageRole identifies who authored a ticket message.
type MessageRole string

const (
	RoleCustomer MessageRole = "customer"
	RoleAgent    MessageRole = "agent"
	RoleSystem   MessageRole = "system"
)

// Message is one entry in a ticket's conversation.
type Message struct {
	ID         int64       `json:"id"`
	TicketID   int64       `json:"ticket_id"`
	Role       MessageRole `json:"role"`
	Content    string      `json:"content"`
	SenderName string      `json:"sender_name,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// AddMessage appends a message to a ticket's conversation.
func (s *Store) AddMessage(m *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m.CreatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		INSERT INTO ticket_messages (ticket_id, role, content, sender_name, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		m.TicketID, string(m.Role), m.Content, nullString(m.SenderName), m.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	return err
}

// ListMessages returns a ticket's messages oldest-first.
func (s *Store) ListMessages(ticketID int64) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, ticket_id, role, content, COALESCE(sender_name, ''), created_at
		FROM ticket_messages WHERE ticket_id = ? ORDER BY created_at, id`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var role string
		if err := rows.Scan(&m.ID, &m.TicketID, &role, &m.Content, &m.SenderName, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = MessageRole(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
