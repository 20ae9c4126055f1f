// Package capture records microphone audio, transcribes it, and forwards the
// text as an outgoing chat utterance.
package capture

import (
	"context"
	"sync"
	"time"

	"storykit/core"
	sttevents "storykit/events/stt"
	"storykit/playback"
	"storykit/utils/audio"
)

type Status string

const (
	StatusIdle       Status = "idle"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusError      Status = "error"
)

const (
	reasonPermissionDenied = "permission denied"
	reasonNoSpeech         = "no speech detected"
)

// Transcriber converts one WAV payload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) (string, error)
}

// Recorder owns the microphone for the duration of one recording session.
// One session cycles idle -> recording -> processing -> idle, with error
// reachable from any state. Buffered audio is destroyed after each cycle.
type Recorder struct {
	mu         sync.Mutex
	status     Status
	errorNote  string
	errorEpoch int // invalidates stale auto-clear timers
	chunks     [][]byte
	sampleRate int
	channels   int

	focus        *playback.FocusArbiter
	transcriber  Transcriber
	micProbe     func() error // capability check before a session starts
	onTranscript func(text string)
	clearDelay   time.Duration
	bus          *core.EventBus
	logger       *core.Logger
}

func NewRecorder(focus *playback.FocusArbiter, transcriber Transcriber, bus *core.EventBus, logger *core.Logger) *Recorder {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Recorder{
		status:      StatusIdle,
		sampleRate:  16000,
		channels:    1,
		focus:       focus,
		transcriber: transcriber,
		micProbe:    func() error { return nil },
		clearDelay:  2 * time.Second,
		bus:         bus,
		logger:      logger.With(map[string]interface{}{"component": "voice_capture"}),
	}
}

// WithMicProbe overrides the microphone capability check. Returns the
// recorder to allow chaining.
func (r *Recorder) WithMicProbe(probe func() error) *Recorder {
	r.micProbe = probe
	return r
}

// WithClearDelay overrides how long transient errors stay visible.
func (r *Recorder) WithClearDelay(d time.Duration) *Recorder {
	r.clearDelay = d
	return r
}

// OnTranscript registers the callback receiving non-empty transcriptions.
func (r *Recorder) OnTranscript(fn func(text string)) {
	r.mu.Lock()
	r.onTranscript = fn
	r.mu.Unlock()
}

// Status returns the current capture status.
func (r *Recorder) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// ErrorNote returns the user-visible error string, if any.
func (r *Recorder) ErrorNote() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errorNote
}

// Toggle starts a recording session when idle and stops-and-transcribes when
// recording. It is a no-op while a previous capture is still processing or
// while playback holds the audio focus.
func (r *Recorder) Toggle(ctx context.Context) {
	r.mu.Lock()
	switch r.status {
	case StatusRecording:
		r.stopAndTranscribeLocked(ctx)
	case StatusIdle, StatusError:
		r.startLocked()
	default:
		r.mu.Unlock()
	}
}

// PushChunk buffers one chunk of captured audio. Chunks are decoded to PCM on
// arrival and ignored outside a recording session.
func (r *Recorder) PushChunk(chunk core.AudioChunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != StatusRecording {
		return
	}
	pcm, err := audio.DecodeToPCM(chunk)
	if err != nil {
		r.logger.Warnf("dropping undecodable capture chunk: %v", err)
		return
	}
	if pcm.SampleRate > 0 {
		r.sampleRate = pcm.SampleRate
	}
	if pcm.Channels > 0 {
		r.channels = pcm.Channels
	}
	r.chunks = append(r.chunks, pcm.Data)
}

// Abandon discards any buffered audio without transcribing, e.g. when the
// user navigates away mid-capture.
func (r *Recorder) Abandon() {
	r.mu.Lock()
	if r.status != StatusRecording {
		r.mu.Unlock()
		return
	}
	r.chunks = nil
	r.setStatusLocked(StatusIdle, "")
	r.mu.Unlock()
	r.focus.ReleaseCapture()
}

// startLocked begins a session; the caller holds the lock, which is released
// before returning.
func (r *Recorder) startLocked() {
	if !r.focus.RequestCapture() {
		r.mu.Unlock()
		return
	}
	if err := r.micProbe(); err != nil {
		r.logger.Warnf("microphone unavailable: %v", err)
		// Persistent until the user retries; invalidates transient timers.
		r.errorEpoch++
		r.setStatusLocked(StatusError, reasonPermissionDenied)
		r.mu.Unlock()
		r.focus.ReleaseCapture()
		if r.bus != nil {
			r.bus.Publish(&sttevents.CaptureErrorEvent{Reason: reasonPermissionDenied, Transient: false}, "voice_capture")
		}
		return
	}
	r.chunks = nil
	r.setStatusLocked(StatusRecording, "")
	r.mu.Unlock()
}

// stopAndTranscribeLocked ends the session and runs transcription; the caller
// holds the lock, which is released before the transcription call.
func (r *Recorder) stopAndTranscribeLocked(ctx context.Context) {
	chunks := r.chunks
	r.chunks = nil
	sampleRate, channels := r.sampleRate, r.channels
	r.setStatusLocked(StatusProcessing, "")
	r.mu.Unlock()
	r.focus.ReleaseCapture()

	var pcm []byte
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}

	if len(pcm) == 0 || r.transcriber == nil {
		r.transientError(reasonNoSpeech)
		return
	}

	text, err := r.transcriber.Transcribe(ctx, audio.EncodeWAV(pcm, sampleRate, channels))
	if err != nil {
		r.logger.Warnf("transcription failed: %v", err)
		r.transientError(reasonNoSpeech)
		return
	}
	if text == "" {
		r.transientError(reasonNoSpeech)
		return
	}

	r.mu.Lock()
	r.setStatusLocked(StatusIdle, "")
	fn := r.onTranscript
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(&sttevents.TranscriptEvent{Text: text}, "voice_capture")
	}
	if fn != nil {
		fn(text)
	}
}

// transientError surfaces a short-lived error state that auto-clears back to
// idle after the display interval.
func (r *Recorder) transientError(reason string) {
	r.mu.Lock()
	r.setStatusLocked(StatusError, reason)
	r.errorEpoch++
	epoch := r.errorEpoch
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(&sttevents.CaptureErrorEvent{Reason: reason, Transient: true}, "voice_capture")
	}

	time.AfterFunc(r.clearDelay, func() {
		r.mu.Lock()
		if r.status == StatusError && r.errorEpoch == epoch {
			r.setStatusLocked(StatusIdle, "")
		}
		r.mu.Unlock()
	})
}

func (r *Recorder) setStatusLocked(status Status, note string) {
	r.status = status
	r.errorNote = note
	if r.bus != nil {
		r.bus.Publish(&sttevents.CaptureStateChangedEvent{State: string(status)}, "voice_capture")
	}
}
