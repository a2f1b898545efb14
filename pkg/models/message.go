package models

// Message is an immutable record of one message between two users.
// Once written it is never mutated; deletion is not supported.
type Message struct {
	ID           string `json:"message_id"`
	Conversation string `json:"conversation_id"`
	Sender       string `json:"sender_id"`
	Receiver     string `json:"receiver_id"`
	Content      string `json:"content"`
	// Created timestamp (ns); part of the log ordering key together
	// with the message ID.
	TS int64 `json:"created_at"`
}
