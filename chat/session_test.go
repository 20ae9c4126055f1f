package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"storykit/core"
	"storykit/dialogue"
	chatevents "storykit/events/chat"
)

type scriptedLLM struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return s.fn(ctx, prompt)
}

type recordingSpeaker struct {
	spoken chan string
}

func newRecordingSpeaker() *recordingSpeaker {
	return &recordingSpeaker{spoken: make(chan string, 8)}
}

func (r *recordingSpeaker) Speak(ctx context.Context, text string, voiceID string) {
	r.spoken <- text
}

func sessionCharacter() core.StoryCharacter {
	return core.StoryCharacter{
		StoryID:       7,
		Title:         "The Brave Little Star",
		CharacterName: "Twinkle",
		Moral:         "Courage shines brightest in the dark.",
		VoiceID:       "voice-1",
	}
}

func newTestSession(service dialogue.LLMService, speaker Speaker, bus *core.EventBus) *Session {
	logger := core.NewNopLogger()
	generator := dialogue.NewGenerator(service, logger)
	return NewSession(sessionCharacter(), nil, generator, speaker, bus, logger)
}

func TestBeginAppendsWelcomeOnce(t *testing.T) {
	bus := core.NewEventBus()
	speaker := newRecordingSpeaker()
	s := newTestSession(nil, speaker, bus)

	appended := 0
	bus.Subscribe(func(p *core.EventPacket) {
		if _, ok := p.Event.(*chatevents.MessageAppendedEvent); ok {
			appended++
		}
	})

	firstScene := &core.Scene{SceneNumber: 1, Description: "Twinkle lived in the night sky."}
	s.Begin(firstScene)
	s.Begin(firstScene)

	messages := s.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected exactly one welcome message, got %d", len(messages))
	}
	if messages[0].Sender != core.SenderCharacter {
		t.Fatalf("welcome must come from the character, got %s", messages[0].Sender)
	}
	if !strings.HasPrefix(messages[0].Text, "Hi! I'm Twinkle") {
		t.Fatalf("unexpected welcome text %q", messages[0].Text)
	}
	if appended != 1 {
		t.Fatalf("expected one appended event, got %d", appended)
	}

	select {
	case spoken := <-speaker.spoken:
		if spoken != messages[0].Text {
			t.Fatalf("the welcome should be spoken verbatim, got %q", spoken)
		}
	case <-time.After(time.Second):
		t.Fatal("welcome was never spoken")
	}
}

func TestTurnSwapsPlaceholderForReply(t *testing.T) {
	bus := core.NewEventBus()
	s := newTestSession(nil, nil, bus)

	var sequence []string
	bus.Subscribe(func(p *core.EventPacket) {
		switch e := p.Event.(type) {
		case *chatevents.MessageAppendedEvent:
			if e.Message.IsPlaceholder() {
				sequence = append(sequence, "placeholder")
			} else {
				sequence = append(sequence, "appended:"+string(e.Message.Sender))
			}
		case *chatevents.MessageRemovedEvent:
			sequence = append(sequence, "removed:"+e.MessageId)
		}
	})

	if !s.SendUserUtterance(context.Background(), "hello!") {
		t.Fatal("utterance should be accepted")
	}

	messages := s.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected user message and reply, got %d messages", len(messages))
	}
	if messages[0].Sender != core.SenderUser || messages[0].Text != "hello!" {
		t.Fatalf("first message should be the user's, got %+v", messages[0])
	}
	if messages[1].Sender != core.SenderCharacter {
		t.Fatalf("second message should be the reply, got %+v", messages[1])
	}
	for _, m := range messages {
		if m.IsPlaceholder() {
			t.Fatal("no placeholder may survive the turn")
		}
	}

	want := []string{"appended:user", "placeholder", "removed:" + core.PlaceholderMessageID, "appended:character"}
	if len(sequence) != len(want) {
		t.Fatalf("expected event sequence %v, got %v", want, sequence)
	}
	for i := range want {
		if sequence[i] != want[i] {
			t.Fatalf("expected event sequence %v, got %v", want, sequence)
		}
	}
	if s.Pending() {
		t.Fatal("the turn should no longer be pending")
	}
}

func TestPlaceholderVisibleDuringGeneration(t *testing.T) {
	var s *Session
	service := &scriptedLLM{fn: func(ctx context.Context, prompt string) (string, error) {
		messages := s.Messages()
		last := messages[len(messages)-1]
		if !last.IsPlaceholder() {
			t.Fatalf("expected a trailing placeholder mid-generation, got %+v", last)
		}
		if !s.Pending() {
			t.Fatal("session should report pending mid-generation")
		}
		return "All done!", nil
	}}
	s = newTestSession(service, nil, core.NewEventBus())

	s.SendUserUtterance(context.Background(), "are you there?")

	messages := s.Messages()
	if messages[len(messages)-1].Text != "All done!" {
		t.Fatalf("expected the real reply at the tail, got %+v", messages[len(messages)-1])
	}
}

func TestUtteranceRejectedWhilePending(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	service := &scriptedLLM{fn: func(ctx context.Context, prompt string) (string, error) {
		close(started)
		<-release
		return "first reply", nil
	}}
	s := newTestSession(service, nil, core.NewEventBus())

	firstDone := make(chan bool, 1)
	go func() {
		firstDone <- s.SendUserUtterance(context.Background(), "first")
	}()

	<-started
	if s.SendUserUtterance(context.Background(), "second") {
		t.Fatal("a second utterance must be rejected while a reply is pending")
	}
	close(release)

	if !<-firstDone {
		t.Fatal("the first utterance should have been accepted")
	}
	messages := s.Messages()
	if len(messages) != 2 {
		t.Fatalf("the rejected utterance must leave no trace, got %d messages", len(messages))
	}
}

func TestEmptyUtteranceRejected(t *testing.T) {
	s := newTestSession(nil, nil, core.NewEventBus())
	if s.SendUserUtterance(context.Background(), "   \t ") {
		t.Fatal("whitespace-only utterances must be rejected")
	}
	if len(s.Messages()) != 0 {
		t.Fatal("a rejected utterance must not append messages")
	}
}

func TestGenerationFailureYieldsSingleApology(t *testing.T) {
	service := &scriptedLLM{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream down")
	}}
	s := newTestSession(service, nil, core.NewEventBus())

	if !s.SendUserUtterance(context.Background(), "hello?") {
		t.Fatal("the utterance itself should be accepted")
	}

	messages := s.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected user message plus one apology, got %d", len(messages))
	}
	if !strings.Contains(messages[1].Text, "lost in the stars") {
		t.Fatalf("expected the in-character apology, got %q", messages[1].Text)
	}
}

func TestReplyIsSpokenWithCharacterVoice(t *testing.T) {
	speaker := newRecordingSpeaker()
	s := newTestSession(nil, speaker, core.NewEventBus())

	s.SendUserUtterance(context.Background(), "hello!")

	select {
	case spoken := <-speaker.spoken:
		messages := s.Messages()
		if spoken != messages[1].Text {
			t.Fatalf("the reply should be spoken verbatim, got %q", spoken)
		}
	case <-time.After(time.Second):
		t.Fatal("reply was never spoken")
	}
}
