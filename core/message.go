package core

import (
	"time"

	"github.com/google/uuid"
)

type MessageSender string

const (
	SenderUser      MessageSender = "user"
	SenderCharacter MessageSender = "character"
)

// PlaceholderMessageID marks the transient "typing" message that stands in for
// a reply being generated. It is always removed before the real reply is
// appended and is never persisted.
const PlaceholderMessageID = "-1"

// Message is one entry in a chat session's append-only log.
type Message struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Sender    MessageSender `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
}

func NewMessage(text string, sender MessageSender) Message {
	return Message{
		ID:        uuid.New().String(),
		Text:      text,
		Sender:    sender,
		Timestamp: time.Now(),
	}
}

func NewPlaceholderMessage() Message {
	return Message{
		ID:        PlaceholderMessageID,
		Text:      "...",
		Sender:    SenderCharacter,
		Timestamp: time.Now(),
	}
}

func (m Message) IsPlaceholder() bool {
	return m.ID == PlaceholderMessageID
}
