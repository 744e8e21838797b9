package publisher

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ghostPublisher posts to the Ghost Admin API. The admin key has the form
// "id:secret" where secret is hex-encoded; each call signs a short-lived
// HS256 token with the key id in the kid header.
type ghostPublisher struct {
	baseURL    string
	keyID      string
	secret     []byte
	httpClient *http.Client
}

func newGhost(baseURL, adminKey string, client *http.Client) (*ghostPublisher, error) {
	id, secretHex, ok := strings.Cut(adminKey, ":")
	if !ok {
		return nil, fmt.Errorf("ghost admin key must have the form id:secret")
	}
	secret, err := hex.DecodeString(secretHex)
	if err != nil {
		return nil, fmt.Errorf("decode ghost admin key secret: %w", err)
	}

	return &ghostPublisher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		keyID:      id,
		secret:     secret,
		httpClient: client,
	}, nil
}

func (g *ghostPublisher) signToken(now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
		"aud": "/admin/",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = g.keyID

	return token.SignedString(g.secret)
}

// Publish creates a published post via the Admin content endpoint and returns
// its location.
func (g *ghostPublisher) Publish(ctx context.Context, article Article) (Result, error) {
	token, err := g.signToken(time.Now())
	if err != nil {
		return Result{}, fmt.Errorf("%w: sign ghost token: %v", ErrPublishFailed, err)
	}

	// Ghost stores post content as a mobiledoc document; markdown goes in as
	// a single markdown card.
	mobiledoc, err := json.Marshal(map[string]interface{}{
		"version": "0.3.1",
		"markups": []interface{}{},
		"atoms":   []interface{}{},
		"cards":   []interface{}{[]interface{}{"markdown", map[string]string{"markdown": article.Body}}},
		"sections": []interface{}{
			[]interface{}{10, 0},
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: marshal mobiledoc: %v", ErrPublishFailed, err)
	}

	payload := map[string]interface{}{
		"posts": []map[string]interface{}{
			{
				"title":     titleOrDefault(article),
				"mobiledoc": string(mobiledoc),
				"status":    "published",
				"tags": []map[string]string{
					{"name": "Daily Reflections"},
					{"name": "Voice Notes"},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: marshal post: %v", ErrPublishFailed, err)
	}

	url := g.baseURL + "/ghost/api/admin/posts/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("%w: create request: %v", ErrPublishFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Ghost "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("%w: ghost status %d: %s", ErrPublishFailed, resp.StatusCode, diag)
	}

	var result struct {
		Posts []struct {
			ID   string `json:"id"`
			URL  string `json:"url"`
			Slug string `json:"slug"`
		} `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return Result{}, fmt.Errorf("%w: decode ghost response: %v", ErrPublishFailed, err)
	}
	if len(result.Posts) == 0 {
		return Result{}, fmt.Errorf("%w: ghost response contained no posts", ErrPublishFailed)
	}

	post := result.Posts[0]
	url = post.URL
	if url == "" && post.Slug != "" {
		url = g.baseURL + "/" + post.Slug
	}
	if url == "" {
		url = "post id " + post.ID
	}

	return Result{URL: url}, nil
}
