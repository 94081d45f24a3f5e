package models

import "time"

// User is a known end user of the assistant, upserted from the transport
// layer on every inbound message.
type User struct {
	UserID    int64     `json:"user_id"`
	Username  *string   `json:"username,omitempty"`
	FirstName *string   `json:"first_name,omitempty"`
	LastName  *string   `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
