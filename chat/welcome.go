package chat

import (
	"fmt"
	"regexp"
	"strings"

	"storykit/core"
)

// locationPattern extracts a best-effort location phrase ("in/at/on the X")
// from the first scene's description. No match simply omits the clause.
var locationPattern = regexp.MustCompile(`(?i)\b((?:in|at|on)\s+(?:the|a)\s+[a-zA-Z]+(?:\s+[a-zA-Z]+)?)`)

// WelcomeMessage builds the deterministic greeting shown when playback
// finishes and the conversation opens.
func WelcomeMessage(character core.StoryCharacter, firstScene *core.Scene) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi! I'm %s from the story %q!", character.CharacterName, character.Title)

	if firstScene != nil {
		if loc := locationPattern.FindString(firstScene.Description); loc != "" {
			fmt.Fprintf(&b, " We just went on an adventure %s.", strings.ToLower(loc))
		}
	}

	if moral := firstSentence(character.Moral); moral != "" {
		fmt.Fprintf(&b, " Remember: %s.", moral)
	}

	b.WriteString(" What would you like to talk about?")
	return b.String()
}

// firstSentence returns the text before the first period, or "" when the
// input has no period to split on.
func firstSentence(text string) string {
	idx := strings.Index(text, ".")
	if idx <= 0 {
		return ""
	}
	return strings.TrimSpace(text[:idx])
}
