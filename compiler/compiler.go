// Package compiler runs the daily compile-and-publish sequence: snapshot the
// day's transcripts, format them into an article, publish it, then clear the
// bucket. It is triggered by the scheduler and by the /compile command, both
// funneling into the same Run.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"voice-blog-bot/store"
)

// Article is a compiled blog post ready for publishing.
type Article struct {
	Title string // empty when the formatter emitted no heading
	Body  string
	Day   string // YYYY-MM-DD
}

// Formatter turns joined transcripts into article text.
type Formatter interface {
	Format(ctx context.Context, prompt string) (string, error)
}

// Publisher posts an article and returns its location.
type Publisher interface {
	Publish(ctx context.Context, article Article) (string, error)
}

// Archive records successfully published articles.
type Archive interface {
	SavePost(ctx context.Context, day, title, body, url string) error
}

// Notifier delivers outcome messages to the user.
type Notifier interface {
	Notify(ctx context.Context, text string)
}

// Runner orchestrates one compile-and-publish attempt.
type Runner struct {
	store     *store.Store
	formatter Formatter
	publisher Publisher
	archive   Archive
	notifier  Notifier
}

// Option configures a Runner.
type Option func(*Runner)

// WithArchive sets the published-post archive.
func WithArchive(a Archive) Option {
	return func(r *Runner) {
		r.archive = a
	}
}

// WithNotifier sets the outcome notifier.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// NewRunner creates a runner over the given collaborators.
func NewRunner(s *store.Store, f Formatter, p Publisher, opts ...Option) *Runner {
	r := &Runner{store: s, formatter: f, publisher: p}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run compiles and publishes the given day. The bucket is cleared only after
// the publisher confirms success; on any failure the entries stay put so a
// manual re-trigger can reuse them. The outcome is reported through the
// notifier and returned.
func (r *Runner) Run(ctx context.Context, day string) error {
	entries, err := r.store.BeginCompile(day)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNothingToCompile):
			r.notify(ctx, "No voice notes were recorded for "+day+".")
		case errors.Is(err, store.ErrCompileInProgress):
			r.notify(ctx, "A compile for "+day+" is already running.")
		}
		return err
	}

	slog.Info("compile started", "day", day, "entries", len(entries))

	prompt := BuildPrompt(entries, r.store.Location())

	text, err := r.formatter.Format(ctx, prompt)
	if err != nil {
		r.store.EndCompile(day, false, 0)
		slog.Error("formatting failed", "day", day, "error", err)
		r.notify(ctx, "Failed to format today's notes: "+err.Error())
		return fmt.Errorf("compile %s: %w", day, err)
	}

	article := ParseArticle(text, day)

	url, err := r.publisher.Publish(ctx, article)
	if err != nil {
		r.store.EndCompile(day, false, 0)
		slog.Error("publish failed", "day", day, "error", err)
		r.notify(ctx, "Failed to publish: "+err.Error())
		return fmt.Errorf("publish %s: %w", day, err)
	}

	if r.archive != nil {
		if err := r.archive.SavePost(ctx, day, article.Title, article.Body, url); err != nil {
			slog.Warn("failed to archive post", "day", day, "error", err)
		}
	}

	r.store.EndCompile(day, true, len(entries))

	slog.Info("compile complete", "day", day, "entries", len(entries), "url", url)
	r.notify(ctx, "Published: "+url)
	return nil
}

func (r *Runner) notify(ctx context.Context, text string) {
	if r.notifier != nil {
		r.notifier.Notify(ctx, text)
	}
}

// BuildPrompt joins entry texts in arrival order. Each note is preceded by an
// explicit boundary marker with its recording time so the formatter can tell
// the notes apart and keep their temporal order.
func BuildPrompt(entries []store.Entry, loc *time.Location) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("--- Voice note at ")
		sb.WriteString(e.Timestamp.In(loc).Format("15:04"))
		sb.WriteString(" ---\n")
		sb.WriteString(e.Text)
	}
	return sb.String()
}

// ParseArticle extracts a leading markdown heading as the title. Without one
// the title stays empty and the publisher falls back to a date-based default.
func ParseArticle(text, day string) Article {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "#") {
		line, rest, _ := strings.Cut(trimmed, "\n")
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if title != "" {
			return Article{
				Title: title,
				Body:  strings.TrimSpace(rest),
				Day:   day,
			}
		}
	}

	return Article{Body: trimmed, Day: day}
}
