package chat

import "storykit/core"

type MessageAppendedEvent struct {
	Message core.Message
}

func (e *MessageAppendedEvent) GetId() string {
	return "chat.message_appended"
}

type MessageRemovedEvent struct {
	MessageId string
}

func (e *MessageRemovedEvent) GetId() string {
	return "chat.message_removed"
}

// StatusNoticeEvent carries a transient, user-visible status string such as
// "no speech detected". Transient notices auto-clear; an empty Text clears
// whatever notice is currently shown.
type StatusNoticeEvent struct {
	Text      string
	Transient bool
}

func (e *StatusNoticeEvent) GetId() string {
	return "chat.status_notice"
}
