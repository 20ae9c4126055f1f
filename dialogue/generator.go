// Package dialogue produces the character's conversational replies, via the
// language model when a credential is configured and a deterministic
// keyword-rule responder otherwise.
package dialogue

import (
	"context"
	"strings"

	"storykit/core"
	"storykit/prompt"
)

// apologyReply is the fixed in-character message shown when the generation
// service fails. The caller never sees a raw service error.
const apologyReply = "Oh my, I got a little lost in the stars for a moment! Could you say that again, friend?"

// LLMService generates a reply for a fully built prompt.
type LLMService interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator answers user utterances. A nil service means no credential is
// configured and the ordered fallback rules are used instead.
type Generator struct {
	service LLMService
	logger  *core.Logger
}

func NewGenerator(service LLMService, logger *core.Logger) *Generator {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Generator{
		service: service,
		logger:  logger.With(map[string]interface{}{"component": "dialogue_generator"}),
	}
}

// Generate returns the character's reply to the utterance. It never fails:
// service errors are converted into the in-character apology.
func (g *Generator) Generate(ctx context.Context, character core.StoryCharacter, scenes []core.Scene, history []core.Message, utterance string) string {
	if g.service == nil {
		return g.fallbackReply(character, utterance)
	}

	promptText := prompt.Build(character, scenes, history, utterance)
	reply, err := g.service.Generate(ctx, promptText)
	if err != nil {
		g.logger.Warnf("generation failed, using apology reply: %v", err)
		return apologyReply
	}
	return reply
}

func (g *Generator) fallbackReply(character core.StoryCharacter, utterance string) string {
	lowered := strings.ToLower(utterance)
	for _, rule := range FallbackRules {
		if rule.Matches(lowered) {
			return rule.Reply(character)
		}
	}
	return genericReply(character)
}
