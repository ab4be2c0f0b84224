package daylog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func mustStore(t *testing.T, dir string, logger *zap.Logger) *Store {
	t.Helper()
	s, err := NewStore(dir, "_emotion_log.json", logger)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestAppend_CreatesAndExtendsDayFile(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "emotions")
	s := mustStore(t, dir, nil)

	date := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	type rec struct {
		Timestamp string `json:"timestamp"`
	}

	if err := s.Append(date, rec{Timestamp: "t1"}); err != nil {
		t.Fatalf("append 1: %v", err)
	}
	if err := s.Append(date, rec{Timestamp: "t2"}); err != nil {
		t.Fatalf("append 2: %v", err)
	}

	b, ok := s.ReadDay(date)
	if !ok {
		t.Fatalf("expected day file at %s", s.Path(date))
	}
	want := "2026-08-30_emotion_log.json"
	if filepath.Base(s.Path(date)) != want {
		t.Fatalf("path=%s", s.Path(date))
	}
	if got := string(b); !contains(got, "t1") || !contains(got, "t2") {
		t.Fatalf("day file content: %s", got)
	}
}

func TestAppend_NormalizesSingleObjectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := mustStore(t, dir, nil)

	date := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	// Externally written day file holding a bare object rather than an array.
	if err := os.WriteFile(s.Path(date), []byte(`{"timestamp":"old"}`), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.Append(date, map[string]string{"timestamp": "new"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	b, _ := s.ReadDay(date)
	if got := string(b); !contains(got, "old") || !contains(got, "new") {
		t.Fatalf("content: %s", got)
	}
}

func TestAppend_CorruptFileWarnsAndStartsFresh(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	dir := t.TempDir()
	s := mustStore(t, dir, zap.New(core))

	date := time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)
	if err := os.WriteFile(s.Path(date), []byte("{{{"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := s.Append(date, map[string]string{"timestamp": "x"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if logs.FilterMessage("day file is corrupt, starting fresh").Len() != 1 {
		t.Fatalf("expected one corruption warning, got %d entries", logs.Len())
	}
	b, _ := s.ReadDay(date)
	if !contains(string(b), "x") {
		t.Fatalf("content: %s", b)
	}
}

func TestReadRange_SkipsMissingDays(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := mustStore(t, dir, nil)

	d1 := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	d3 := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	if err := s.Append(d1, map[string]int{"n": 1}); err != nil {
		t.Fatalf("append d1: %v", err)
	}
	if err := s.Append(d3, map[string]int{"n": 3}); err != nil {
		t.Fatalf("append d3: %v", err)
	}

	files := s.ReadRange(d1, d3)
	if len(files) != 2 {
		t.Fatalf("files=%d", len(files))
	}
	if files[0].Date != "2026-08-24" || files[1].Date != "2026-08-26" {
		t.Fatalf("dates=%s,%s", files[0].Date, files[1].Date)
	}
}

func contains(s, sub string) bool {
	return strings.Contains(s, sub)
}
