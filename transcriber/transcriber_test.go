package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTranscribe(t *testing.T) {
	audio := []byte("fake-ogg-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/audio/transcriptions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("model = %q, want whisper-1", got)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		uploaded, _ := io.ReadAll(file)
		if !bytes.Equal(uploaded, audio) {
			t.Errorf("uploaded audio does not match input")
		}

		json.NewEncoder(w).Encode(map[string]string{"text": "Woke up early"})
	}))
	defer server.Close()

	tr := NewTranscriber("test-key", WithBaseURL(server.URL))

	text, err := tr.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "Woke up early" {
		t.Errorf("text = %q, want %q", text, "Woke up early")
	}
}

func TestTranscribeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("engine unavailable"))
	}))
	defer server.Close()

	tr := NewTranscriber("test-key", WithBaseURL(server.URL))

	_, err := tr.Transcribe(context.Background(), []byte("audio"))
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Fatalf("err = %v, want ErrTranscriptionFailed", err)
	}
	// Platform diagnostic text must be carried through.
	if !bytes.Contains([]byte(err.Error()), []byte("engine unavailable")) {
		t.Errorf("error %q missing diagnostic text", err)
	}
}

func TestTranscribeEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": ""})
	}))
	defer server.Close()

	tr := NewTranscriber("test-key", WithBaseURL(server.URL))

	_, err := tr.Transcribe(context.Background(), []byte("audio"))
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("err = %v, want ErrTranscriptionFailed", err)
	}
}

func TestTranscribeUnreachable(t *testing.T) {
	tr := NewTranscriber("test-key", WithBaseURL("http://127.0.0.1:1"))

	_, err := tr.Transcribe(context.Background(), []byte("audio"))
	if !errors.Is(err, ErrTranscriptionFailed) {
		t.Errorf("err = %v, want ErrTranscriptionFailed", err)
	}
}
