// Package synth turns reply text into playable audio and manages the
// response-playback focus lifecycle.
package synth

import (
	"context"
	"errors"

	"storykit/core"
	ttsevents "storykit/events/tts"
	"storykit/playback"
	tts "storykit/services/elevenlabs/tts"
)

// TTSService converts text into audio bytes for the given voice.
type TTSService interface {
	Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error)
}

// Synthesizer speaks replies. Synthesis failures are silent to the user: the
// text reply has already been appended and remains visible. At most one
// synthesized response holds the playback focus at a time.
type Synthesizer struct {
	service TTSService
	focus   *playback.FocusArbiter
	bus     *core.EventBus
	logger  *core.Logger
}

func NewSynthesizer(service TTSService, focus *playback.FocusArbiter, bus *core.EventBus, logger *core.Logger) *Synthesizer {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Synthesizer{
		service: service,
		focus:   focus,
		bus:     bus,
		logger:  logger.With(map[string]interface{}{"component": "speech_synthesizer"}),
	}
}

// Speak synthesizes the text and starts playback under the focus arbiter.
// It runs concurrently with the text append and must never block it; the
// caller invokes it from its own goroutine. When synthesis is unavailable
// the conversation simply continues text-only.
func (s *Synthesizer) Speak(ctx context.Context, text string, voiceID string) {
	if s.service == nil {
		return
	}

	audioBytes, err := s.service.Synthesize(ctx, text, voiceID)
	if err != nil {
		if errors.Is(err, tts.ErrUnavailable) {
			return
		}
		s.logger.Warnf("synthesis failed, reply stays text-only: %v", err)
		return
	}

	s.focus.AcquirePlayback(playback.FocusResponse)
	if s.bus != nil {
		s.bus.Publish(&ttsevents.ResponseAudioEvent{
			AudioChunk: core.AudioChunk{Data: audioBytes, Format: core.MP3, Channels: 1},
		}, "speech_synthesizer")
	}
}

// NotifyPlaybackEnded releases the response focus after natural completion.
func (s *Synthesizer) NotifyPlaybackEnded() {
	s.focus.ReleasePlayback(playback.FocusResponse)
	if s.bus != nil {
		s.bus.Publish(&ttsevents.SpeakingEndedEvent{}, "speech_synthesizer")
	}
}

// NotifyPlaybackError releases the response focus after a playback failure.
// The failure is silent: the text reply remains visible.
func (s *Synthesizer) NotifyPlaybackError(reason string) {
	s.logger.Warnf("response playback failed: %s", reason)
	s.NotifyPlaybackEnded()
}

// Stop releases the response focus on an explicit stop.
func (s *Synthesizer) Stop() {
	s.NotifyPlaybackEnded()
}
