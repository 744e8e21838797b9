package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var base = time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)

func TestAppendPreservesArrivalOrder(t *testing.T) {
	s := New(time.UTC)

	texts := []string{"Woke up early", "Finished the report", "Evening walk thoughts"}
	for i, text := range texts {
		n := s.Append(Entry{Timestamp: base.Add(time.Duration(i) * time.Hour), Text: text})
		if n != i+1 {
			t.Errorf("Append #%d returned count %d, want %d", i, n, i+1)
		}
	}

	day := s.DayKey(base)
	entries, err := s.BeginCompile(day)
	if err != nil {
		t.Fatalf("BeginCompile failed: %v", err)
	}
	defer s.EndCompile(day, false, 0)

	if len(entries) != len(texts) {
		t.Fatalf("got %d entries, want %d", len(entries), len(texts))
	}
	for i, e := range entries {
		if e.Text != texts[i] {
			t.Errorf("entry %d = %q, want %q", i, e.Text, texts[i])
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			t.Errorf("timestamps not monotonic at %d", i)
		}
	}
}

func TestDayKeyUsesTimezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Fatal(err)
	}
	s := New(tokyo)

	// 23:00 UTC on the 30th is already the 31st in Tokyo.
	late := time.Date(2026, 8, 30, 23, 0, 0, 0, time.UTC)
	if got := s.DayKey(late); got != "2026-08-31" {
		t.Errorf("DayKey = %q, want %q", got, "2026-08-31")
	}
}

func TestBeginCompileEmptyDay(t *testing.T) {
	s := New(time.UTC)

	_, err := s.BeginCompile("2026-08-30")
	if !errors.Is(err, ErrNothingToCompile) {
		t.Errorf("err = %v, want ErrNothingToCompile", err)
	}
}

func TestBeginCompileWhileCompiling(t *testing.T) {
	s := New(time.UTC)
	s.Append(Entry{Timestamp: base, Text: "note"})
	day := s.DayKey(base)

	if _, err := s.BeginCompile(day); err != nil {
		t.Fatalf("first BeginCompile failed: %v", err)
	}

	_, err := s.BeginCompile(day)
	if !errors.Is(err, ErrCompileInProgress) {
		t.Errorf("err = %v, want ErrCompileInProgress", err)
	}

	// Releasing the flag makes the day compilable again.
	s.EndCompile(day, false, 0)
	if _, err := s.BeginCompile(day); err != nil {
		t.Errorf("BeginCompile after EndCompile failed: %v", err)
	}
}

func TestEndCompileClear(t *testing.T) {
	s := New(time.UTC)
	s.Append(Entry{Timestamp: base, Text: "a"})
	s.Append(Entry{Timestamp: base.Add(time.Minute), Text: "b"})
	day := s.DayKey(base)

	entries, err := s.BeginCompile(day)
	if err != nil {
		t.Fatal(err)
	}
	s.EndCompile(day, true, len(entries))

	if got := s.Count(day); got != 0 {
		t.Errorf("Count after clear = %d, want 0", got)
	}
	if _, err := s.BeginCompile(day); !errors.Is(err, ErrNothingToCompile) {
		t.Errorf("err = %v, want ErrNothingToCompile after clear", err)
	}
}

func TestEndCompileWithoutClearPreservesEntries(t *testing.T) {
	s := New(time.UTC)
	s.Append(Entry{Timestamp: base, Text: "a"})
	s.Append(Entry{Timestamp: base.Add(time.Minute), Text: "b"})
	day := s.DayKey(base)

	entries, err := s.BeginCompile(day)
	if err != nil {
		t.Fatal(err)
	}
	s.EndCompile(day, false, len(entries))

	if got := s.Count(day); got != 2 {
		t.Errorf("Count after failed compile = %d, want 2", got)
	}
}

func TestAppendDuringCompileSurvivesClear(t *testing.T) {
	s := New(time.UTC)
	s.Append(Entry{Timestamp: base, Text: "before"})
	day := s.DayKey(base)

	entries, err := s.BeginCompile(day)
	if err != nil {
		t.Fatal(err)
	}

	// A note arrives while the compile is in flight.
	s.Append(Entry{Timestamp: base.Add(time.Minute), Text: "during"})

	s.EndCompile(day, true, len(entries))

	if got := s.Count(day); got != 1 {
		t.Fatalf("Count = %d, want 1 entry left over", got)
	}
	remaining, err := s.BeginCompile(day)
	if err != nil {
		t.Fatal(err)
	}
	defer s.EndCompile(day, false, 0)
	if remaining[0].Text != "during" {
		t.Errorf("remaining entry = %q, want %q", remaining[0].Text, "during")
	}
}

func TestConcurrentAppends(t *testing.T) {
	s := New(time.UTC)
	const n = 100

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Append(Entry{Timestamp: base, Text: fmt.Sprintf("note %d", i)})
		}(i)
	}
	wg.Wait()

	if got := s.Count(s.DayKey(base)); got != n {
		t.Errorf("Count = %d, want %d", got, n)
	}
}

func TestDifferentDaysDoNotContend(t *testing.T) {
	s := New(time.UTC)
	s.Append(Entry{Timestamp: base, Text: "today"})
	s.Append(Entry{Timestamp: base.AddDate(0, 0, 1), Text: "tomorrow"})

	today := s.DayKey(base)
	tomorrow := s.DayKey(base.AddDate(0, 0, 1))

	if _, err := s.BeginCompile(today); err != nil {
		t.Fatal(err)
	}
	defer s.EndCompile(today, false, 0)

	if _, err := s.BeginCompile(tomorrow); err != nil {
		t.Errorf("compile of a different day blocked: %v", err)
	}
	s.EndCompile(tomorrow, false, 0)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New(time.UTC)
	s.Append(Entry{Timestamp: base, Text: "original"})
	day := s.DayKey(base)

	entries, err := s.BeginCompile(day)
	if err != nil {
		t.Fatal(err)
	}
	entries[0].Text = "mutated"
	s.EndCompile(day, false, 0)

	again, err := s.BeginCompile(day)
	if err != nil {
		t.Fatal(err)
	}
	defer s.EndCompile(day, false, 0)
	if again[0].Text != "original" {
		t.Errorf("store entry = %q, snapshot mutation leaked", again[0].Text)
	}
}
