package models

import "fmt"

// ConversationKey scopes a conversation's message sequence. A chat may host
// multiple users and a user may participate in multiple chats, so both
// identifiers are needed. Comparable by value; never mutated.
type ConversationKey struct {
	ChatID int64
	UserID int64
}

// NewConversationKey builds a key from its two components.
func NewConversationKey(chatID, userID int64) ConversationKey {
	return ConversationKey{ChatID: chatID, UserID: userID}
}

func (k ConversationKey) String() string {
	return fmt.Sprintf("chat=%d user=%d", k.ChatID, k.UserID)
}
