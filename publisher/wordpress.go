package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// wordPressPublisher posts to the WordPress REST API with a bearer token.
type wordPressPublisher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func newWordPress(baseURL, apiKey string, client *http.Client) *wordPressPublisher {
	return &wordPressPublisher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

// Publish creates a published post and returns its link.
func (w *wordPressPublisher) Publish(ctx context.Context, article Article) (Result, error) {
	payload := map[string]interface{}{
		"title":   titleOrDefault(article),
		"content": article.Body,
		"status":  "publish",
		"format":  "standard",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: marshal post: %v", ErrPublishFailed, err)
	}

	url := w.baseURL + "/wp-json/wp/v2/posts"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: create request: %v", ErrPublishFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("%w: wordpress status %d: %s", ErrPublishFailed, resp.StatusCode, diag)
	}

	var result struct {
		ID   int64  `json:"id"`
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%w: decode wordpress response: %v", ErrPublishFailed, err)
	}

	loc := result.Link
	if loc == "" {
		loc = fmt.Sprintf("post id %d", result.ID)
	}
	return Result{URL: loc}, nil
}
