// Package publisher posts a compiled article to the configured blog backend.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrPublishFailed tags any transport failure, timeout, or non-success status
// from a blog platform. The wrapped message carries the platform's diagnostic
// text where available.
var ErrPublishFailed = errors.New("publish failed")

// Article is the compiled blog post. Title may be empty; variants fall back
// to a date-based default.
type Article struct {
	Title string
	Body  string
	Day   string // YYYY-MM-DD
}

// Result is the terminal value of a successful publish.
type Result struct {
	URL string
}

// Publisher is the capability every blog backend satisfies. Each Publish call
// is a single atomic post creation; there is no retry and no partial apply.
type Publisher interface {
	Publish(ctx context.Context, article Article) (Result, error)
}

// New selects a publisher variant from configuration. The choice is made once
// at startup; there is no runtime switching.
func New(platform, baseURL, apiKey string, timeout time.Duration) (Publisher, error) {
	client := &http.Client{Timeout: timeout}

	switch platform {
	case "ghost":
		return newGhost(baseURL, apiKey, client)
	case "wordpress":
		return newWordPress(baseURL, apiKey, client), nil
	case "medium":
		return newMedium(apiKey, client), nil
	default:
		return nil, fmt.Errorf("unknown platform %q", platform)
	}
}

// defaultTitle is used when the formatter did not emit a heading line.
func defaultTitle(day string) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return "Daily Reflections"
	}
	return "Daily Reflections - " + t.Format("January 2, 2006")
}

func titleOrDefault(article Article) string {
	if article.Title != "" {
		return article.Title
	}
	return defaultTitle(article.Day)
}
