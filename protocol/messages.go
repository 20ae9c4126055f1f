package protocol

import (
	"encoding/json"

	"storykit/core"
)

// MessageType enumerates all messages exchanged with the UI client.
type MessageType string

const (
	// Server -> client
	MsgStoryData       MessageType = "story_data"
	MsgPhaseChange     MessageType = "phase_change"
	MsgMessageAppended MessageType = "message_appended"
	MsgMessageRemoved  MessageType = "message_removed"
	MsgCaptureState    MessageType = "capture_state"
	MsgFocusChange     MessageType = "focus_change"
	MsgResponseAudio   MessageType = "response_audio"
	MsgStatusNotice    MessageType = "status_notice"

	// Client -> server
	MsgStart              MessageType = "start"
	MsgAdvance            MessageType = "advance"
	MsgSceneAudioEnded    MessageType = "scene_audio_ended"
	MsgSceneAudioError    MessageType = "scene_audio_error"
	MsgResponseAudioEnded MessageType = "response_audio_ended"
	MsgResponseAudioError MessageType = "response_audio_error"
	MsgUtterance          MessageType = "utterance"
	MsgRecordToggle       MessageType = "record_toggle"
	MsgMicConfig          MessageType = "mic_config"
)

// Envelope is the outer JSON wrapper for all text frames. Microphone audio
// travels as binary frames and carries no envelope.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Server -> client payloads ---

// StoryDataPayload delivers the story bundle at session start so the client
// can preload scene media.
type StoryDataPayload struct {
	Character core.StoryCharacter `json:"character"`
	Scenes    []core.Scene        `json:"scenes"`
}

// PhaseChangePayload reports a playback phase transition.
type PhaseChangePayload struct {
	Phase       string      `json:"phase"`
	SceneNumber int         `json:"scene_number,omitempty"`
	Scene       *core.Scene `json:"scene,omitempty"`
}

// MessageAppendedPayload carries one appended chat message.
type MessageAppendedPayload struct {
	Message core.Message `json:"message"`
}

// MessageRemovedPayload signals removal of a transient message.
type MessageRemovedPayload struct {
	ID string `json:"id"`
}

// CaptureStatePayload reports the voice-capture state machine's position.
type CaptureStatePayload struct {
	State     string `json:"state"`
	Reason    string `json:"reason,omitempty"`
	Transient bool   `json:"transient,omitempty"`
}

// FocusChangePayload tells the client to enable or disable the capture
// affordance while playback focus is held.
type FocusChangePayload struct {
	Held   bool   `json:"held"`
	Holder string `json:"holder,omitempty"`
}

// ResponseAudioPayload announces a synthesized reply; the audio bytes follow
// in the next binary frame.
type ResponseAudioPayload struct {
	Size   int    `json:"size"`
	Format string `json:"format"`
}

// StatusNoticePayload shows a transient or persistent status string.
type StatusNoticePayload struct {
	Text      string `json:"text"`
	Transient bool   `json:"transient"`
}

// --- Client -> server payloads ---

// UtterancePayload is a typed user message.
type UtterancePayload struct {
	Text string `json:"text"`
}

// AudioErrorPayload reports a media element failure on the client.
type AudioErrorPayload struct {
	Reason string `json:"reason,omitempty"`
}

// MicConfigPayload declares the encoding of subsequent binary mic frames.
type MicConfigPayload struct {
	Encoding   string `json:"encoding"` // "pcm" or "ulaw"
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}
