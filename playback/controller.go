// Package playback drives the scene-advance state machine and arbitrates the
// audio output between narration, synthesized replies, and capture.
package playback

import (
	"fmt"
	"sync"

	"storykit/core"
	playbackevents "storykit/events/playback"
)

// SceneCount is the fixed number of narrated scenes per story.
const SceneCount = 4

// Phase is the state machine's current position:
// Intro -> Scene(1) .. Scene(4) -> Finished.
type Phase int

const (
	PhaseIntro    Phase = 0
	PhaseFinished Phase = SceneCount + 1
)

// ScenePhase returns the phase for scene n, n in [1, SceneCount].
func ScenePhase(n int) Phase {
	return Phase(n)
}

func (p Phase) String() string {
	switch {
	case p == PhaseIntro:
		return "intro"
	case p == PhaseFinished:
		return "finished"
	case p >= 1 && p <= SceneCount:
		return fmt.Sprintf("scene_%d", int(p))
	default:
		return fmt.Sprintf("phase_%d", int(p))
	}
}

// SceneNumber returns the scene number for scene phases and 0 otherwise.
func (p Phase) SceneNumber() int {
	if p >= 1 && p <= SceneCount {
		return int(p)
	}
	return 0
}

// Controller advances through a story's scenes, gated on narration audio
// completion. The transition to Finished is terminal for a playback run and
// fires the finished callback exactly once.
type Controller struct {
	mu            sync.Mutex
	storyID       int
	scenes        []core.Scene // storyId-filtered, sceneNumber-sorted
	phase         Phase
	audioFinished bool
	finishedFired bool
	onFinished    func()

	focus  *FocusArbiter
	bus    *core.EventBus
	logger *core.Logger
}

func NewController(storyID int, scenes []core.Scene, focus *FocusArbiter, bus *core.EventBus, logger *core.Logger) *Controller {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Controller{
		storyID:       storyID,
		scenes:        scenes,
		phase:         PhaseIntro,
		audioFinished: true, // the intro has no narration to wait for
		focus:         focus,
		bus:           bus,
		logger:        logger.With(map[string]interface{}{"component": "playback_controller"}),
	}
}

// OnFinished registers the callback fired once on the Finished transition.
func (c *Controller) OnFinished(fn func()) {
	c.mu.Lock()
	c.onFinished = fn
	c.mu.Unlock()
}

// Phase returns the current playback phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// AudioFinished reports whether the current scene's narration has completed.
func (c *Controller) AudioFinished() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.audioFinished
}

// Start transitions Intro -> Scene(1). No-op outside the intro.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.phase != PhaseIntro {
		c.mu.Unlock()
		return
	}
	c.enterSceneLocked(1)
	c.mu.Unlock()
}

// Advance moves to the next scene, or from the last scene to Finished. It is
// enabled only once the current scene's audio has reported completion;
// calling it earlier is a no-op.
func (c *Controller) Advance() {
	c.mu.Lock()
	if c.phase == PhaseIntro || c.phase == PhaseFinished {
		c.mu.Unlock()
		return
	}
	if !c.audioFinished {
		c.mu.Unlock()
		return
	}

	next := int(c.phase) + 1
	if next > SceneCount {
		var fire func()
		c.finishLocked()
		if c.onFinished != nil && !c.finishedFired {
			c.finishedFired = true
			fire = c.onFinished
		}
		c.mu.Unlock()
		if fire != nil {
			fire()
		}
		return
	}
	c.enterSceneLocked(next)
	c.mu.Unlock()
}

// NotifyAudioFinished records that the current scene's narration completed
// naturally, releasing the narration focus.
func (c *Controller) NotifyAudioFinished() {
	c.mu.Lock()
	if c.phase.SceneNumber() == 0 || c.audioFinished {
		c.mu.Unlock()
		return
	}
	c.audioFinished = true
	c.mu.Unlock()
	c.focus.ReleasePlayback(FocusNarration)
}

// NotifyAudioError treats a narration playback failure as completion so the
// scene advance never deadlocks. The failure is logged, not surfaced.
func (c *Controller) NotifyAudioError(reason string) {
	c.logger.Warnf("scene narration playback failed: %s", reason)
	c.NotifyAudioFinished()
}

// ResolveScene finds the scene for the given number: first by exact
// scene_number match, then positionally against the sorted list. The second
// return value is false when neither resolves; such a scene has no media and
// is immediately advance-eligible.
func (c *Controller) ResolveScene(sceneNumber int) (core.Scene, bool) {
	for _, s := range c.scenes {
		if s.SceneNumber == sceneNumber {
			return s, true
		}
	}
	idx := sceneNumber - 1
	if idx >= 0 && idx < len(c.scenes) {
		return c.scenes[idx], true
	}
	return core.Scene{}, false
}

func (c *Controller) enterSceneLocked(n int) {
	c.phase = ScenePhase(n)

	scene, ok := c.ResolveScene(n)
	var scenePtr *core.Scene
	hasAudio := false
	if ok {
		sceneCopy := scene
		scenePtr = &sceneCopy
		hasAudio = scene.AudioRef != ""
	}

	// A scene without media counts as already played so Advance stays enabled.
	c.audioFinished = !hasAudio
	if hasAudio {
		c.focus.AcquirePlayback(FocusNarration)
	}

	c.logger.Infof("entering %s (audio=%v)", c.phase, hasAudio)
	if c.bus != nil {
		c.bus.Publish(&playbackevents.PhaseChangedEvent{
			Phase:       c.phase.String(),
			SceneNumber: n,
			Scene:       scenePtr,
		}, "playback_controller")
	}
}

func (c *Controller) finishLocked() {
	c.phase = PhaseFinished
	c.logger.Info("story playback finished")
	if c.bus != nil {
		c.bus.Publish(&playbackevents.PhaseChangedEvent{Phase: c.phase.String()}, "playback_controller")
		c.bus.Publish(&playbackevents.StoryFinishedEvent{}, "playback_controller")
	}
}
