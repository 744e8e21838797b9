// Package ingest turns one inbound voice recording into one stored transcript entry.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"voice-blog-bot/store"
)

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Handler appends transcribed voice notes to the transcript store.
type Handler struct {
	transcriber Transcriber
	store       *store.Store
}

// NewHandler creates an ingestion handler.
func NewHandler(transcriber Transcriber, s *store.Store) *Handler {
	return &Handler{transcriber: transcriber, store: s}
}

// Ingest transcribes the recording and records it under the day derived from
// the timestamp. On success it returns the entry and the day's new entry
// count; on transcriber failure nothing is recorded and the message is lost.
func (h *Handler) Ingest(ctx context.Context, audio []byte, ts time.Time) (store.Entry, int, error) {
	text, err := h.transcriber.Transcribe(ctx, audio)
	if err != nil {
		return store.Entry{}, 0, fmt.Errorf("ingest voice note: %w", err)
	}

	entry := store.Entry{Timestamp: ts, Text: text}
	count := h.store.Append(entry)

	slog.Info("voice note ingested", "day", h.store.DayKey(ts), "count", count, "chars", len(text))
	return entry, count, nil
}
