// Package formatter turns a day's raw transcripts into article text using an
// OpenRouter chat completion.
package formatter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrFormattingFailed tags any failure of the formatting call.
var ErrFormattingFailed = errors.New("formatting failed")

const (
	defaultBaseURL = "https://openrouter.ai/api/v1"
	defaultModel   = "anthropic/claude-3.7-sonnet"
)

// systemInstruction is the fixed instruction describing the desired blog
// tone and structure. The transcripts arrive in recording order and the model
// is expected to stitch them into one narrative.
const systemInstruction = `You turn a day's voice notes into a single coherent blog post. ` +
	`The notes are given in the order they were recorded; preserve that narrative order. ` +
	`Organize related thoughts, fix grammar and transcription errors, and keep the ` +
	`author's original ideas and voice. Start the post with a markdown heading line ` +
	`containing a short title, then the body in markdown.`

// Formatter calls the OpenRouter chat completions endpoint.
type Formatter struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Formatter.
type Option func(*Formatter)

// WithModel sets the model to use.
func WithModel(model string) Option {
	return func(f *Formatter) {
		if model != "" {
			f.model = model
		}
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(f *Formatter) {
		if url != "" {
			f.baseURL = url
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Formatter) {
		f.httpClient.Timeout = d
	}
}

// NewFormatter creates an OpenRouter-backed formatter.
func NewFormatter(apiKey string, opts ...Option) *Formatter {
	f := &Formatter{
		apiKey:     apiKey,
		model:      defaultModel,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Format sends the joined transcripts and returns the article text.
func (f *Formatter) Format(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: f.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemInstruction},
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", ErrFormattingFailed, err)
	}

	url := f.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", ErrFormattingFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)
	req.Header.Set("X-Title", "Voice Blog Bot")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFormattingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d: %s", ErrFormattingFailed, resp.StatusCode, diag)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrFormattingFailed, err)
	}

	if len(chatResp.Choices) == 0 || chatResp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: no content in response", ErrFormattingFailed)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// OpenRouter API types (OpenAI chat completion shape)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}
