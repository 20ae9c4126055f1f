package stt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"storykit/core"

	"github.com/sashabaranov/go-openai"
)

// WhisperSTTConfig holds configuration for the Whisper transcription service
type WhisperSTTConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

// WhisperSTTService transcribes captured audio by posting it as a multipart
// audio payload to the OpenAI transcription endpoint.
type WhisperSTTService struct {
	client *openai.Client
	model  string
	logger *core.Logger
}

// NewWhisperSTTService creates a new Whisper transcription service.
// Returns an error when no credential is configured; callers treat that as a
// valid text-only configuration, not a startup failure.
func NewWhisperSTTService(config WhisperSTTConfig, logger *core.Logger) (*WhisperSTTService, error) {
	if config.APIKey == "" {
		return nil, errors.New("whisper: API key not configured")
	}
	if config.Model == "" {
		config.Model = openai.Whisper1
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &WhisperSTTService{
		client: openai.NewClient(config.APIKey),
		model:  config.Model,
		logger: logger,
	}, nil
}

// Transcribe sends one WAV payload for transcription and returns the text.
func (s *WhisperSTTService) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", errors.New("whisper: empty audio payload")
	}

	resp, err := s.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    s.model,
		FilePath: "capture.wav",
		Reader:   bytes.NewReader(wav),
	})
	if err != nil {
		return "", fmt.Errorf("whisper: transcription failed: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}
