package main

import (
	"encoding/base64"
	"errors"
	"flag"
	"net/http"
	"os"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"

	"storykit/core"
	"storykit/factories"
	"storykit/protocol"
	"storykit/story"
)

var upgrader = websocket.Upgrader{
	// The story UI is served from its own origin during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":8080", "listen address for the story UI websocket")
	flag.Parse()

	if err := godotenv.Load(".env.local"); err != nil {
		core.GetLogger().With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings := loadSettingsFromEnv()
	logger := core.GetLogger()

	loader := story.NewLoader(settings.StoryAPIBaseURL, http.DefaultClient, logger)

	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.With(map[string]any{"error": err}).Error("websocket upgrade failed")
			return
		}
		defer conn.Close()

		sessionLogger := logger.With(map[string]any{"remote": r.RemoteAddr})
		transport, err := factories.BuildSession(r.Context(), conn, loader, settings, http.DefaultClient, sessionLogger)
		if err != nil {
			notifyUnavailable(conn, sessionLogger, err)
			return
		}

		if err := transport.Run(r.Context()); err != nil {
			sessionLogger.With(map[string]any{"error": err}).Info("session ended")
		}
	})

	logger.Infof("story orchestrator listening on %s", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.With(map[string]any{"error": err}).Error("server stopped")
	}
}

// notifyUnavailable tells the client why no session could start. A missing
// story routes to the conversation-unavailable state; transport failures get
// a transient status string.
func notifyUnavailable(conn *websocket.Conn, logger *core.Logger, err error) {
	text := "Something went wrong loading today's story. Please try again."
	transient := true
	if errors.Is(err, story.ErrNoStories) {
		text = "There is no story to play today. Come back tomorrow!"
		transient = false
	}
	logger.With(map[string]any{"error": err}).Warn("session unavailable")

	data, merr := protocol.Marshal(protocol.MsgStatusNotice, protocol.StatusNoticePayload{Text: text, Transient: transient})
	if merr != nil {
		return
	}
	conn.WriteMessage(websocket.TextMessage, data)
}

func loadSettingsFromEnv() factories.SettingsConfig {
	var settings factories.SettingsConfig
	var err error

	if b64 := os.Getenv("SETTINGS_JSON_B64"); b64 != "" {
		data, decErr := base64.StdEncoding.DecodeString(b64)
		if decErr != nil {
			core.GetLogger().With(map[string]any{"error": decErr}).Error("failed to decode SETTINGS_JSON_B64")
			settings = factories.DefaultSettingsConfig()
		} else if settings, err = factories.SettingsConfigFromJSON(data); err != nil {
			core.GetLogger().With(map[string]any{"error": err}).Error("failed to parse SETTINGS_JSON_B64")
			settings = factories.DefaultSettingsConfig()
		}
	} else {
		settingsPath := getEnv("SETTINGS_PATH", "./settings.json")
		settings, err = factories.SettingsConfigFromFile(settingsPath)
		if err != nil {
			core.GetLogger().With(map[string]any{"path": settingsPath, "error": err}).Warn("failed to load settings, using defaults")
			settings = factories.DefaultSettingsConfig()
		}
	}

	if base := os.Getenv("STORY_API_BASE_URL"); base != "" {
		settings.StoryAPIBaseURL = base
	}

	settings.InjectAPIKeys(factories.APIKeys{
		Gemini:     os.Getenv("GEMINI_API_KEY"),
		ElevenLabs: os.Getenv("ELEVENLABS_API_KEY"),
		OpenAI:     os.Getenv("OPENAI_API_KEY"),
	})
	return settings
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
