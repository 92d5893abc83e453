package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageRunes bounds the body length. Longer bodies are truncated,
// not rejected.
const MaxMessageRunes = 400

// Message is the wire representation of a chat message.
// Author is populated from the users collection on read and on create;
// only AuthorID is persisted with the message itself.
type Message struct {
	ID        uuid.UUID `json:"id"`
	AuthorID  string    `json:"authorId"`
	Author    *User     `json:"author,omitempty"`
	Body      string    `json:"body"`
	Language  string    `json:"language,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
