package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"storykit/core"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"
)

// ErrUnavailable marks synthesis as not configured rather than failed. The
// conversation continues text-only when it is returned.
var ErrUnavailable = errors.New("speech synthesis unavailable")

// ElevenLabsTTSConfig holds configuration for the ElevenLabs TTS service
type ElevenLabsTTSConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
	ModelID string `json:"model_id"`

	// DefaultVoiceID is substituted when a story character carries no voice
	// of its own. Leave empty to disable substitution.
	DefaultVoiceID string `json:"default_voice_id"`

	// Voice settings
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabsTTS implements speech synthesis against the ElevenLabs REST API.
type ElevenLabsTTS struct {
	config     ElevenLabsTTSConfig
	httpClient core.HTTPDoer
	limiter    *rate.Limiter
	logger     *core.Logger
}

type (
	elSynthesisRequest struct {
		Text          string          `json:"text"`
		ModelID       string          `json:"model_id"`
		VoiceSettings elVoiceSettings `json:"voice_settings"`
	}

	elVoiceSettings struct {
		Stability       float64 `json:"stability"`
		SimilarityBoost float64 `json:"similarity_boost"`
	}
)

// NewElevenLabsTTS creates a new ElevenLabs TTS service with the provided config
func NewElevenLabsTTS(config ElevenLabsTTSConfig, httpClient core.HTTPDoer, logger *core.Logger) *ElevenLabsTTS {
	if config.BaseURL == "" {
		config.BaseURL = "https://api.elevenlabs.io/v1/text-to-speech"
	}
	if config.ModelID == "" {
		config.ModelID = "eleven_turbo_v2_5"
	}
	if config.Stability == 0 {
		config.Stability = 0.5
	}
	if config.SimilarityBoost == 0 {
		config.SimilarityBoost = 0.75
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &ElevenLabsTTS{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(2), 2),
		logger:     logger,
	}
}

// Synthesize converts text to MP3 audio using the given voice. It returns
// ErrUnavailable when no credential is configured or no voice can be resolved.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, voiceID string) ([]byte, error) {
	if e.config.APIKey == "" {
		return nil, ErrUnavailable
	}
	if voiceID == "" {
		voiceID = e.config.DefaultVoiceID
	}
	if voiceID == "" {
		return nil, ErrUnavailable
	}
	if text == "" {
		return nil, errors.New("elevenlabs: text cannot be empty")
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("elevenlabs: rate limiter: %w", err)
	}

	payload := elSynthesisRequest{
		Text:    text,
		ModelID: e.config.ModelID,
		VoiceSettings: elVoiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.SimilarityBoost,
		},
	}
	body, err := sonic.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", e.config.BaseURL, voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: build request: %w", err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elevenlabs: status %d: %s", resp.StatusCode, string(errBody))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("elevenlabs: empty audio response")
	}
	return audio, nil
}
