package llm

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"storykit/core"
)

type fakeDoer struct {
	fn func(req *http.Request) (*http.Response, error)
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	return f.fn(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestGenerateParsesFirstCandidate(t *testing.T) {
	var gotURL, gotBody string
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"  Hello, friend!  "}]}}]}`), nil
	}}

	svc := NewGeminiLLMService(GeminiLLMConfig{APIKey: "test-key"}, doer, core.NewNopLogger())
	got, err := svc.Generate(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if got != "Hello, friend!" {
		t.Fatalf("expected trimmed candidate text, got %q", got)
	}
	if !strings.Contains(gotURL, "gemini-2.0-flash:generateContent?key=test-key") {
		t.Fatalf("unexpected request URL %q", gotURL)
	}
	if !strings.Contains(gotBody, `"say hello"`) {
		t.Fatalf("request body should carry the prompt, got %s", gotBody)
	}
	if !strings.Contains(gotBody, `"generationConfig"`) {
		t.Fatalf("request body should carry the generation config, got %s", gotBody)
	}
}

func TestGenerateFailsWithoutCandidates(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"candidates":[]}`), nil
	}}

	svc := NewGeminiLLMService(GeminiLLMConfig{APIKey: "test-key"}, doer, core.NewNopLogger())
	if _, err := svc.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected an error for a response without candidates")
	}
}

func TestGenerateFailsOnEmptyCandidateText(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`), nil
	}}

	svc := NewGeminiLLMService(GeminiLLMConfig{APIKey: "test-key"}, doer, core.NewNopLogger())
	if _, err := svc.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected an error for blank candidate text")
	}
}

func TestGenerateFailsOnNonSuccessStatus(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		return jsonResponse(429, `{"error":"quota"}`), nil
	}}

	svc := NewGeminiLLMService(GeminiLLMConfig{APIKey: "test-key"}, doer, core.NewNopLogger())
	_, err := svc.Generate(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected a status error, got %v", err)
	}
}

func TestGenerateRequiresCredential(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be made without a credential")
		return nil, nil
	}}

	svc := NewGeminiLLMService(GeminiLLMConfig{}, doer, core.NewNopLogger())
	if svc.IsConfigured() {
		t.Fatal("service without a key should not report configured")
	}
	if _, err := svc.Generate(context.Background(), "hi"); err == nil {
		t.Fatal("expected an error without an API key")
	}
}
