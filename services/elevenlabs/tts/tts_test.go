package elevenlabs

import (
	"context"
	"errors"
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

func TestSynthesizeUnavailableWithoutCredential(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be made without a credential")
		return nil, nil
	}}
	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{}, doer, core.NewNopLogger())

	_, err := svc.Synthesize(context.Background(), "hello", "voice-1")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestSynthesizeUnavailableWithoutResolvableVoice(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be made without a voice")
		return nil, nil
	}}
	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{APIKey: "test-key"}, doer, core.NewNopLogger())

	_, err := svc.Synthesize(context.Background(), "hello", "")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable when no voice resolves, got %v", err)
	}
}

func TestSynthesizeSubstitutesDefaultVoice(t *testing.T) {
	var gotURL string
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		gotURL = req.URL.String()
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader("mp3-bytes")),
		}, nil
	}}
	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{
		APIKey:         "test-key",
		DefaultVoiceID: "default-voice",
	}, doer, core.NewNopLogger())

	if _, err := svc.Synthesize(context.Background(), "hello", ""); err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if !strings.HasSuffix(gotURL, "/default-voice") {
		t.Fatalf("expected the default voice in the URL, got %q", gotURL)
	}
}

func TestSynthesizeRequestShape(t *testing.T) {
	var gotReq *http.Request
	var gotBody string
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		gotReq = req
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		return &http.Response{
			StatusCode: 200,
			Body:       io.NopCloser(strings.NewReader("mp3-bytes")),
		}, nil
	}}
	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{APIKey: "test-key"}, doer, core.NewNopLogger())

	audio, err := svc.Synthesize(context.Background(), "hello there", "voice-1")
	if err != nil {
		t.Fatalf("Synthesize returned error: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("expected the raw audio bytes, got %q", audio)
	}
	if got := gotReq.Header.Get("xi-api-key"); got != "test-key" {
		t.Fatalf("expected credential header, got %q", got)
	}
	if got := gotReq.Header.Get("Accept"); got != "audio/mpeg" {
		t.Fatalf("expected audio accept header, got %q", got)
	}
	if !strings.HasSuffix(gotReq.URL.String(), "/voice-1") {
		t.Fatalf("expected the voice in the URL, got %q", gotReq.URL)
	}
	for _, want := range []string{`"hello there"`, `"stability":0.5`, `"similarity_boost":0.75`, `"eleven_turbo_v2_5"`} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("request body missing %s: %s", want, gotBody)
		}
	}
}

func TestSynthesizeStatusErrorIsNotUnavailable(t *testing.T) {
	doer := &fakeDoer{fn: func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: 500,
			Body:       io.NopCloser(strings.NewReader("boom")),
		}, nil
	}}
	svc := NewElevenLabsTTS(ElevenLabsTTSConfig{APIKey: "test-key"}, doer, core.NewNopLogger())

	_, err := svc.Synthesize(context.Background(), "hello", "voice-1")
	if err == nil || errors.Is(err, ErrUnavailable) {
		t.Fatalf("a server failure is an error, not unavailability: %v", err)
	}
}
