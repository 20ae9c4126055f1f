package factories

import (
	"context"

	"github.com/gorilla/websocket"

	"storykit/capture"
	"storykit/chat"
	"storykit/core"
	"storykit/dialogue"
	"storykit/playback"
	"storykit/protocol"
	elevenlabs "storykit/services/elevenlabs/tts"
	geminillm "storykit/services/gemini/llm"
	whisperstt "storykit/services/openai/stt"
	"storykit/story"
	"storykit/synth"
	wstransport "storykit/transports/websocket"
)

// BuildSession assembles one full playback-and-conversation session for a
// connected client: story data, playback state machine, focus arbiter, voice
// capture, dialogue generation, and speech synthesis wired to the transport.
func BuildSession(
	ctx context.Context,
	conn *websocket.Conn,
	loader *story.Loader,
	settings SettingsConfig,
	httpClient core.HTTPDoer,
	logger *core.Logger,
) (*wstransport.SessionTransport, error) {
	if logger == nil {
		logger = core.GetLogger()
	}

	data, err := loader.LoadLatest(ctx)
	if err != nil {
		return nil, err
	}
	character := data.LatestCharacter()
	if character == nil {
		return nil, story.ErrNoStories
	}
	scenes := data.ScenesForStory(character.StoryID)

	bus := core.NewEventBus()
	focus := playback.NewFocusArbiter(bus, logger)
	controller := playback.NewController(character.StoryID, scenes, focus, bus, logger)

	var llmService dialogue.LLMService
	if settings.Gemini.APIKey != "" {
		llmService = geminillm.NewGeminiLLMService(settings.Gemini, httpClient, logger)
	}
	generator := dialogue.NewGenerator(llmService, logger)

	ttsService := elevenlabs.NewElevenLabsTTS(settings.ElevenLabs, httpClient, logger)
	synthesizer := synth.NewSynthesizer(ttsService, focus, bus, logger)

	session := chat.NewSession(*character, scenes, generator, synthesizer, bus, logger)
	controller.OnFinished(func() {
		var firstScene *core.Scene
		if scene, ok := controller.ResolveScene(1); ok {
			firstScene = &scene
		}
		session.Begin(firstScene)
	})

	var transcriber capture.Transcriber
	if whisper, err := whisperstt.NewWhisperSTTService(settings.Whisper, logger); err == nil {
		transcriber = whisper
	} else {
		logger.Warnf("transcription unavailable, voice input disabled: %v", err)
	}
	recorder := capture.NewRecorder(focus, transcriber, bus, logger)
	recorder.OnTranscript(func(text string) {
		// Forwarded verbatim as an outgoing message; generation must not
		// block the capture cycle.
		go session.SendUserUtterance(context.Background(), text)
	})

	return wstransport.NewSessionTransport(
		conn,
		protocol.StoryDataPayload{Character: *character, Scenes: scenes},
		controller,
		session,
		recorder,
		synthesizer,
		bus,
		logger,
	), nil
}
