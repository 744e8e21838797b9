package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const defaultMediumBaseURL = "https://api.medium.com/v1"

// mediumPublisher posts through the Medium integration-token API. Publishing
// needs the user ID, so the first call resolves it via /me and caches it; the
// post creation itself is a single request.
type mediumPublisher struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	userID     string
}

func newMedium(apiKey string, client *http.Client) *mediumPublisher {
	return &mediumPublisher{
		baseURL:    defaultMediumBaseURL,
		apiKey:     apiKey,
		httpClient: client,
	}
}

func (m *mediumPublisher) fetchUserID(ctx context.Context) (string, error) {
	if m.userID != "" {
		return m.userID, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/me", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("medium /me status %d: %s", resp.StatusCode, diag)
	}

	var result struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode medium user: %w", err)
	}
	if result.Data.ID == "" {
		return "", fmt.Errorf("medium user id missing from /me response")
	}

	m.userID = result.Data.ID
	return m.userID, nil
}

// Publish creates a public post under the token's user and returns its URL.
func (m *mediumPublisher) Publish(ctx context.Context, article Article) (Result, error) {
	userID, err := m.fetchUserID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	payload := map[string]interface{}{
		"title":         titleOrDefault(article),
		"contentFormat": "markdown",
		"content":       article.Body,
		"publishStatus": "public",
		"tags":          []string{"daily-reflections", "voice-notes"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: marshal post: %v", ErrPublishFailed, err)
	}

	url := fmt.Sprintf("%s/users/%s/posts", m.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: create request: %v", ErrPublishFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("%w: medium status %d: %s", ErrPublishFailed, resp.StatusCode, diag)
	}

	var result struct {
		Data struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%w: decode medium response: %v", ErrPublishFailed, err)
	}

	loc := result.Data.URL
	if loc == "" {
		loc = "post id " + result.Data.ID
	}
	return Result{URL: loc}, nil
}
