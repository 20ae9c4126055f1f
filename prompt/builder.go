// Package prompt assembles the grounded generation prompt from the story
// character, its scenes, and the conversation history.
package prompt

import (
	"fmt"
	"strings"

	"storykit/core"
)

// MaxHistoryTurns bounds how many trailing history messages are rendered into
// the prompt, regardless of total history length.
const MaxHistoryTurns = 20

const humanRole = "Human"

// Build is a pure function producing the prompt text for one conversational
// turn. It never mutates its inputs and never inspects more than the last
// MaxHistoryTurns history messages.
func Build(character core.StoryCharacter, scenes []core.Scene, history []core.Message, utterance string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are %s, a character from the children's story %q.\n", character.CharacterName, character.Title)
	if character.Moral != "" {
		fmt.Fprintf(&b, "The moral of the story is: %s\n", character.Moral)
	}

	if len(scenes) > 0 {
		b.WriteString("\nThe story so far:\n")
		for _, s := range scenes {
			fmt.Fprintf(&b, "Scene %d: %s\n", s.SceneNumber, s.Description)
		}
	}

	start := 0
	if len(history) > MaxHistoryTurns {
		start = len(history) - MaxHistoryTurns
	}
	if start < len(history) {
		b.WriteString("\nConversation so far:\n")
		for _, m := range history[start:] {
			role := character.CharacterName
			if m.Sender == core.SenderUser {
				role = humanRole
			}
			fmt.Fprintf(&b, "%s: %s\n", role, m.Text)
		}
	}

	fmt.Fprintf(&b, "\n%s: %s\n", humanRole, utterance)

	fmt.Fprintf(&b, "\nStay in character as %s at all times. ", character.CharacterName)
	b.WriteString("Reference the story and its moral when it is relevant. ")
	b.WriteString("Keep your reply to 1-3 short sentences unless the child asks for more. ")
	b.WriteString("Never reveal how your replies are produced or that you are anything other than the character.\n")
	fmt.Fprintf(&b, "%s:", character.CharacterName)

	return b.String()
}
