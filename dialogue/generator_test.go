package dialogue

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storykit/core"
)

type fakeLLM struct {
	fn func(ctx context.Context, prompt string) (string, error)
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string) (string, error) {
	return f.fn(ctx, prompt)
}

func testCharacter() core.StoryCharacter {
	return core.StoryCharacter{
		StoryID:       7,
		Title:         "The Brave Little Star",
		CharacterName: "Twinkle",
		Moral:         "Courage shines brightest in the dark.",
	}
}

func TestFallbackGreetingIsDeterministic(t *testing.T) {
	g := NewGenerator(nil, core.NewNopLogger())
	character := testCharacter()

	first := g.Generate(context.Background(), character, nil, nil, "Hello there!")
	second := g.Generate(context.Background(), character, nil, nil, "Hello there!")

	if first != second {
		t.Fatalf("fallback replies should be deterministic: %q vs %q", first, second)
	}
	if !strings.Contains(first, "Twinkle") {
		t.Fatalf("greeting should name the character, got %q", first)
	}
}

func TestFallbackRuleOrder(t *testing.T) {
	want := []RuleTag{RuleGreeting, RuleStory, RulePreference, RuleIdentity}
	if len(FallbackRules) != len(want) {
		t.Fatalf("expected %d fallback rules, got %d", len(want), len(FallbackRules))
	}
	for i, rule := range FallbackRules {
		if rule.Tag != want[i] {
			t.Fatalf("rule %d: expected %s, got %s", i, want[i], rule.Tag)
		}
	}
}

func TestFallbackFirstMatchWins(t *testing.T) {
	g := NewGenerator(nil, core.NewNopLogger())

	// Matches both greeting and identity; greeting is checked first.
	got := g.Generate(context.Background(), testCharacter(), nil, nil, "hey, who are you?")
	if !strings.Contains(got, "Hello, friend!") {
		t.Fatalf("expected the greeting rule to win, got %q", got)
	}
}

func TestFallbackRuleReplies(t *testing.T) {
	g := NewGenerator(nil, core.NewNopLogger())
	character := testCharacter()

	cases := []struct {
		utterance string
		want      string
	}{
		{"what happened in the story?", character.Moral},
		{"what is your favorite color?", "I love making new friends"},
		{"tell me your name", "I'm Twinkle"},
		{"quantum chromodynamics", "Tell me more, friend"},
	}
	for _, tc := range cases {
		got := g.Generate(context.Background(), character, nil, nil, tc.utterance)
		if !strings.Contains(got, tc.want) {
			t.Fatalf("utterance %q: expected reply containing %q, got %q", tc.utterance, tc.want, got)
		}
	}
}

func TestServiceReplyPassedThrough(t *testing.T) {
	svc := &fakeLLM{fn: func(ctx context.Context, prompt string) (string, error) {
		if !strings.Contains(prompt, "Twinkle") {
			t.Fatalf("prompt should carry the character, got %q", prompt)
		}
		return "Of course, little friend!", nil
	}}
	g := NewGenerator(svc, core.NewNopLogger())

	got := g.Generate(context.Background(), testCharacter(), nil, nil, "can you help me?")
	if got != "Of course, little friend!" {
		t.Fatalf("expected the service reply verbatim, got %q", got)
	}
}

func TestServiceErrorYieldsApology(t *testing.T) {
	svc := &fakeLLM{fn: func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("upstream exploded")
	}}
	g := NewGenerator(svc, core.NewNopLogger())

	got := g.Generate(context.Background(), testCharacter(), nil, nil, "can you help me?")
	if got != apologyReply {
		t.Fatalf("expected the fixed apology, got %q", got)
	}
}
