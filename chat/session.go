// Package chat owns the conversation message log and turn sequencing.
package chat

import (
	"context"
	"strings"
	"sync"

	"storykit/core"
	"storykit/dialogue"
	chatevents "storykit/events/chat"
)

// Speaker plays a reply out loud. Satisfied by synth.Synthesizer; nil means
// the conversation is text-only.
type Speaker interface {
	Speak(ctx context.Context, text string, voiceID string)
}

// Session holds the append-only message sequence for one conversation. At
// most one generation request is in flight at a time: new utterances are
// rejected while a placeholder reply is pending.
type Session struct {
	mu        sync.Mutex
	character core.StoryCharacter
	scenes    []core.Scene
	messages  []core.Message
	pending   bool
	begun     bool

	generator *dialogue.Generator
	speaker   Speaker
	bus       *core.EventBus
	logger    *core.Logger
}

func NewSession(character core.StoryCharacter, scenes []core.Scene, generator *dialogue.Generator, speaker Speaker, bus *core.EventBus, logger *core.Logger) *Session {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Session{
		character: character,
		scenes:    scenes,
		generator: generator,
		speaker:   speaker,
		bus:       bus,
		logger:    logger.With(map[string]interface{}{"component": "chat_session"}),
	}
}

// Begin opens the conversation with the deterministic welcome message. It is
// generated once, at the playback-finished transition; later calls are no-ops.
func (s *Session) Begin(firstScene *core.Scene) {
	s.mu.Lock()
	if s.begun {
		s.mu.Unlock()
		return
	}
	s.begun = true
	welcome := core.NewMessage(WelcomeMessage(s.character, firstScene), core.SenderCharacter)
	s.messages = append(s.messages, welcome)
	s.mu.Unlock()

	s.publishAppended(welcome)
	s.speak(welcome.Text)
}

// SendUserUtterance runs one conversational turn: the user message is
// appended immediately, a transient placeholder marks the reply in flight,
// and the placeholder is swapped for the real reply as a single state
// transition. Returns false when the utterance is rejected (empty text or a
// previous turn still pending).
func (s *Session) SendUserUtterance(ctx context.Context, text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		s.logger.Info("utterance rejected: a reply is already in flight")
		return false
	}
	history := make([]core.Message, len(s.messages))
	copy(history, s.messages)

	userMsg := core.NewMessage(text, core.SenderUser)
	placeholder := core.NewPlaceholderMessage()
	s.messages = append(s.messages, userMsg, placeholder)
	s.pending = true
	s.mu.Unlock()

	s.publishAppended(userMsg)
	s.publishAppended(placeholder)

	reply := s.generator.Generate(ctx, s.character, s.scenes, history, text)

	replyMsg := core.NewMessage(reply, core.SenderCharacter)
	s.mu.Lock()
	s.removePlaceholderLocked()
	s.messages = append(s.messages, replyMsg)
	s.pending = false
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(&chatevents.MessageRemovedEvent{MessageId: core.PlaceholderMessageID}, "chat_session")
	}
	s.publishAppended(replyMsg)

	s.speak(reply)
	return true
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []core.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Pending reports whether a reply is currently in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) removePlaceholderLocked() {
	for i, m := range s.messages {
		if m.IsPlaceholder() {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// speak starts synthesis without blocking the text append.
func (s *Session) speak(text string) {
	if s.speaker == nil {
		return
	}
	go s.speaker.Speak(context.Background(), text, s.character.VoiceID)
}

func (s *Session) publishAppended(m core.Message) {
	if s.bus != nil {
		s.bus.Publish(&chatevents.MessageAppendedEvent{Message: m}, "chat_session")
	}
}
