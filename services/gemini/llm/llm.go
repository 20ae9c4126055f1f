package llm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"storykit/core"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"
)

// GeminiLLMConfig holds configuration for the Gemini generation service
type GeminiLLMConfig struct {
	APIKey          string  `json:"api_key"`
	BaseURL         string  `json:"base_url"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"top_k"`
	TopP            float64 `json:"top_p"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// GeminiLLMService generates dialogue via the Gemini generateContent REST API.
type GeminiLLMService struct {
	config     GeminiLLMConfig
	httpClient core.HTTPDoer
	limiter    *rate.Limiter
	logger     *core.Logger
}

type (
	geminiRequest struct {
		Contents         []geminiContent `json:"contents"`
		GenerationConfig geminiGenConfig `json:"generationConfig"`
	}

	geminiContent struct {
		Parts []geminiPart `json:"parts"`
	}

	geminiPart struct {
		Text string `json:"text"`
	}

	geminiGenConfig struct {
		Temperature     float64 `json:"temperature"`
		TopK            int     `json:"topK"`
		TopP            float64 `json:"topP"`
		MaxOutputTokens int     `json:"maxOutputTokens"`
	}

	geminiResponse struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
)

// NewGeminiLLMService creates a new Gemini generation service with the provided config
func NewGeminiLLMService(config GeminiLLMConfig, httpClient core.HTTPDoer, logger *core.Logger) *GeminiLLMService {
	if config.BaseURL == "" {
		config.BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	}
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.TopK == 0 {
		config.TopK = 40
	}
	if config.TopP == 0 {
		config.TopP = 0.95
	}
	if config.MaxOutputTokens == 0 {
		config.MaxOutputTokens = 256
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &GeminiLLMService{
		config:     config,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(1), 2),
		logger:     logger,
	}
}

// IsConfigured reports whether a credential is available.
func (s *GeminiLLMService) IsConfigured() bool {
	return s.config.APIKey != ""
}

// Generate sends the prompt to Gemini and returns the first candidate's text.
func (s *GeminiLLMService) Generate(ctx context.Context, prompt string) (string, error) {
	if s.config.APIKey == "" {
		return "", errors.New("gemini: API key not configured")
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("gemini: rate limiter: %w", err)
	}

	payload := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenConfig{
			Temperature:     s.config.Temperature,
			TopK:            s.config.TopK,
			TopP:            s.config.TopP,
			MaxOutputTokens: s.config.MaxOutputTokens,
		},
	}

	body, err := sonic.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", s.config.BaseURL, s.config.Model, s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("gemini: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini: status %d: %s", resp.StatusCode, string(respBody))
	}

	var parsed geminiResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("gemini: parse response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: response has no candidates")
	}

	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return "", errors.New("gemini: candidate text is empty")
	}
	return text, nil
}
