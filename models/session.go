package models

import "time"

// Role identifies the author of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a chat session
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatSession represents a conversation with its ordered turns
type ChatSession struct {
	ID        string    `json:"session_id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
}
