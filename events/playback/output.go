package playback

import "storykit/core"

type PhaseChangedEvent struct {
	Phase       string
	SceneNumber int         // 0 outside scene phases
	Scene       *core.Scene // nil when the phase has no resolvable scene media
}

func (e *PhaseChangedEvent) GetId() string {
	return "playback.phase_changed"
}

type StoryFinishedEvent struct{}

func (e *StoryFinishedEvent) GetId() string {
	return "playback.story_finished"
}

// FocusChangedEvent reports who holds the audio-output focus. The rendering
// layer disables capture affordances while Held is true.
type FocusChangedEvent struct {
	Held   bool
	Holder string
}

func (e *FocusChangedEvent) GetId() string {
	return "playback.focus_changed"
}
