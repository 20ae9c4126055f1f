package factories

import (
	"fmt"
	"os"

	"github.com/bytedance/sonic"

	elevenlabs "storykit/services/elevenlabs/tts"
	geminillm "storykit/services/gemini/llm"
	whisperstt "storykit/services/openai/stt"
)

// SettingsConfig is the top-level configuration document. Missing service
// credentials are valid configurations: the orchestrator falls back to
// rule-based dialogue and text-only conversation.
type SettingsConfig struct {
	StoryAPIBaseURL string                         `json:"story_api_base_url"`
	Gemini          geminillm.GeminiLLMConfig      `json:"gemini"`
	ElevenLabs      elevenlabs.ElevenLabsTTSConfig `json:"elevenlabs"`
	Whisper         whisperstt.WhisperSTTConfig    `json:"whisper"`
}

// APIKeys holds credentials injected from the environment.
type APIKeys struct {
	Gemini     string
	ElevenLabs string
	OpenAI     string
}

// DefaultSettingsConfig returns settings suitable for local development.
func DefaultSettingsConfig() SettingsConfig {
	config := SettingsConfig{
		StoryAPIBaseURL: "http://localhost:8003",
	}
	config.ElevenLabs.DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM" // Rachel
	return config
}

// SettingsConfigFromJSON parses a settings document.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	config := DefaultSettingsConfig()
	if err := sonic.Unmarshal(data, &config); err != nil {
		return SettingsConfig{}, fmt.Errorf("factories: parse settings: %w", err)
	}
	return config, nil
}

// SettingsConfigFromFile loads a settings document from disk.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SettingsConfig{}, fmt.Errorf("factories: read settings file: %w", err)
	}
	return SettingsConfigFromJSON(data)
}

// InjectAPIKeys fills credentials from the environment without overriding
// keys already present in the settings document.
func (c *SettingsConfig) InjectAPIKeys(keys APIKeys) {
	if c.Gemini.APIKey == "" {
		c.Gemini.APIKey = keys.Gemini
	}
	if c.ElevenLabs.APIKey == "" {
		c.ElevenLabs.APIKey = keys.ElevenLabs
	}
	if c.Whisper.APIKey == "" {
		c.Whisper.APIKey = keys.OpenAI
	}
}
