package dialogue

import (
	"fmt"
	"strings"

	"storykit/core"
)

// RuleTag names one fallback rule so tests can enumerate rule order exactly.
type RuleTag string

const (
	RuleGreeting   RuleTag = "greeting"
	RuleStory      RuleTag = "story"
	RulePreference RuleTag = "preference"
	RuleIdentity   RuleTag = "identity"
)

// Rule matches a lower-cased utterance against a keyword set and produces a
// templated in-character reply.
type Rule struct {
	Tag      RuleTag
	Keywords []string
	Reply    func(character core.StoryCharacter) string
}

// Matches reports whether the lower-cased utterance contains any keyword.
func (r Rule) Matches(lowered string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// FallbackRules is the ordered rule list used when no generation credential
// is configured. Order matters: the first matching rule wins.
var FallbackRules = []Rule{
	{
		Tag:      RuleGreeting,
		Keywords: []string{"hello", "hi", "hey", "good morning", "good afternoon"},
		Reply: func(c core.StoryCharacter) string {
			return fmt.Sprintf("Hello, friend! It's me, %s! I'm so happy you stayed to talk with me.", c.CharacterName)
		},
	},
	{
		Tag:      RuleStory,
		Keywords: []string{"story", "adventure", "happen", "scene"},
		Reply: func(c core.StoryCharacter) string {
			if c.Moral != "" {
				return fmt.Sprintf("Wasn't %q a wonderful adventure? My favorite part is what it taught us: %s", c.Title, c.Moral)
			}
			return fmt.Sprintf("Wasn't %q a wonderful adventure? I loved every moment of it!", c.Title)
		},
	},
	{
		Tag:      RulePreference,
		Keywords: []string{"favorite", "favourite", "like", "love"},
		Reply: func(c core.StoryCharacter) string {
			return "Ooh, I love making new friends and going on adventures! What do you like best?"
		},
	},
	{
		Tag:      RuleIdentity,
		Keywords: []string{"who are you", "your name", "what are you"},
		Reply: func(c core.StoryCharacter) string {
			return fmt.Sprintf("I'm %s, from the story %q! And you're my new friend.", c.CharacterName, c.Title)
		},
	},
}

// genericReply is the in-character prompt-for-more used when no rule matches.
func genericReply(c core.StoryCharacter) string {
	return fmt.Sprintf("That's so interesting! Tell me more, friend. %s is listening!", c.CharacterName)
}
