// Package transcriber converts voice recordings to text through a
// Whisper-compatible transcription API.
package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// ErrTranscriptionFailed tags any failure to obtain text for a recording.
var ErrTranscriptionFailed = errors.New("transcription failed")

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "whisper-1"
)

// Transcriber posts audio to a speech-to-text endpoint.
type Transcriber struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option configures a Transcriber.
type Option func(*Transcriber)

// WithBaseURL sets a custom API base URL.
func WithBaseURL(url string) Option {
	return func(t *Transcriber) {
		if url != "" {
			t.baseURL = url
		}
	}
}

// WithModel sets the transcription model.
func WithModel(model string) Option {
	return func(t *Transcriber) {
		t.model = model
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(t *Transcriber) {
		t.httpClient.Timeout = d
	}
}

// NewTranscriber creates a transcriber client.
func NewTranscriber(apiKey string, opts ...Option) *Transcriber {
	t := &Transcriber{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		model:      defaultModel,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transcribe uploads the audio bytes and returns the recognized text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "voice.ogg")
	if err != nil {
		return "", fmt.Errorf("%w: build form: %v", ErrTranscriptionFailed, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: write audio: %v", ErrTranscriptionFailed, err)
	}
	if err := writer.WriteField("model", t.model); err != nil {
		return "", fmt.Errorf("%w: write model field: %v", ErrTranscriptionFailed, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: close form: %v", ErrTranscriptionFailed, err)
	}

	url := t.baseURL + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrTranscriptionFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscriptionFailed, resp.StatusCode, diag)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrTranscriptionFailed, err)
	}
	if result.Text == "" {
		return "", fmt.Errorf("%w: empty transcript", ErrTranscriptionFailed)
	}

	return result.Text, nil
}
