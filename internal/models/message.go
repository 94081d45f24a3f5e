package models

import (
	"fmt"
	"time"
)

// Role identifies the author of a chat message. The set is closed: only the
// three constants below are valid values.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is one of the defined roles. Used at decode
// boundaries; inside the core an invalid role is unrepresentable.
func (r Role) IsValid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ParseRole converts a raw string (from storage or a request body) into a
// Role, rejecting anything outside the enumeration.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.IsValid() {
		return "", fmt.Errorf("invalid role %q", s)
	}
	return r, nil
}

// ChatMessage is the transfer form of a message: the unit exchanged with the
// language model and rendered to transport adapters.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Message is the persisted form of a chat message. Rows are append-only:
// after insert the only permitted mutation is setting DeletedAt once.
type Message struct {
	ID            int64      `json:"id"`
	ChatID        int64      `json:"chat_id"`
	UserID        int64      `json:"user_id"`
	Role          Role       `json:"role"`
	Content       string     `json:"content"`
	ContentLength int        `json:"content_length"`
	CreatedAt     time.Time  `json:"created_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}

// Deleted reports whether the row has been soft-deleted.
func (m *Message) Deleted() bool {
	return m.DeletedAt != nil
}

// ChatMessage converts the persisted row back to its transfer form.
func (m *Message) ChatMessage() ChatMessage {
	return ChatMessage{Role: m.Role, Content: m.Content}
}
