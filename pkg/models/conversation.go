package models

// Conversation is the canonical record for a two-party conversation.
// The pair (UserA, UserB) maps to exactly one conversation id; pair
// order does not matter. LastMessageTS/LastMessagePreview are a
// denormalized snapshot of the most recent message.
type Conversation struct {
	ID    string `json:"conversation_id"`
	UserA string `json:"user1_id"`
	UserB string `json:"user2_id"`
	// Created timestamp (ns)
	CreatedTS int64 `json:"created_at"`
	// Snapshot of the latest message; rewritten on every send
	LastMessageTS      int64  `json:"last_message_at"`
	LastMessagePreview string `json:"last_message_content,omitempty"`
}

// ConversationSummary is one row of a user's conversation list
// projection. Its lifecycle follows the Conversation snapshot: every
// recency change appends a fresh row, superseding older ones for the
// same conversation id.
type ConversationSummary struct {
	User         string `json:"user_id"`
	Conversation string `json:"conversation_id"`
	OtherUser    string `json:"other_user_id"`
	// Last activity timestamp (ns); the projection ordering key
	LastMessageTS      int64  `json:"last_message_at"`
	LastMessagePreview string `json:"last_message_content,omitempty"`
}
