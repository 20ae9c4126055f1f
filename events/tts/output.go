package tts

import "storykit/core"

// ResponseAudioEvent carries one fully synthesized reply ready for playback.
type ResponseAudioEvent struct {
	AudioChunk core.AudioChunk
}

func (e *ResponseAudioEvent) GetId() string {
	return "tts.response_audio"
}

type SpeakingEndedEvent struct{}

func (e *SpeakingEndedEvent) GetId() string {
	return "tts.speaking_ended"
}
