package playback

import (
	"sync"

	"storykit/core"
	playbackevents "storykit/events/playback"
)

// FocusHolder identifies who currently drives the audio output.
type FocusHolder string

const (
	FocusNone      FocusHolder = ""
	FocusNarration FocusHolder = "narration"
	FocusResponse  FocusHolder = "response"
)

// FocusArbiter enforces mutual exclusion between microphone capture and audio
// playback. Capture requests are rejected while playback focus is held;
// playback is never gated on capture, but acquiring it notifies the rendering
// layer so capture affordances can be disabled. Focus never outlives the
// completion or error event of its holder.
type FocusArbiter struct {
	mu            sync.Mutex
	holder        FocusHolder
	captureActive bool
	bus           *core.EventBus
	logger        *core.Logger
}

func NewFocusArbiter(bus *core.EventBus, logger *core.Logger) *FocusArbiter {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &FocusArbiter{
		bus:    bus,
		logger: logger.With(map[string]interface{}{"component": "focus_arbiter"}),
	}
}

// RequestCapture asks for permission to start microphone capture. It is
// rejected while any playback focus is held.
func (a *FocusArbiter) RequestCapture() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.holder != FocusNone {
		a.logger.Infof("capture rejected: %s playback holds focus", a.holder)
		return false
	}
	a.captureActive = true
	return true
}

// ReleaseCapture marks the microphone as no longer in use.
func (a *FocusArbiter) ReleaseCapture() {
	a.mu.Lock()
	a.captureActive = false
	a.mu.Unlock()
}

// AcquirePlayback hands the audio output to the given holder. The last
// acquirer wins; capture state never blocks playback.
func (a *FocusArbiter) AcquirePlayback(holder FocusHolder) {
	a.mu.Lock()
	a.holder = holder
	a.mu.Unlock()
	if a.bus != nil {
		a.bus.Publish(&playbackevents.FocusChangedEvent{Held: true, Holder: string(holder)}, "focus_arbiter")
	}
}

// ReleasePlayback releases focus if it is still owned by the given holder.
// Called on natural completion, playback error, and explicit stop.
func (a *FocusArbiter) ReleasePlayback(holder FocusHolder) {
	a.mu.Lock()
	if a.holder != holder {
		a.mu.Unlock()
		return
	}
	a.holder = FocusNone
	a.mu.Unlock()
	if a.bus != nil {
		a.bus.Publish(&playbackevents.FocusChangedEvent{Held: false}, "focus_arbiter")
	}
}

// PlaybackHeld reports whether any playback currently holds focus.
func (a *FocusArbiter) PlaybackHeld() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.holder != FocusNone
}

// CaptureActive reports whether the microphone is currently owned.
func (a *FocusArbiter) CaptureActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.captureActive
}
