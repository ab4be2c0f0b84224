package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var exportTestNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

func newTestExporter(t *testing.T) *Exporter {
	t.Helper()
	root := t.TempDir()
	e, err := NewExporter(filepath.Join(root, "logs"), filepath.Join(root, "exports"), nil)
	if err != nil {
		t.Fatalf("NewExporter: %v", err)
	}
	e.Now = func() time.Time { return exportTestNow }
	return e
}

func writeLogFile(t *testing.T, e *Exporter, logType LogType, date, content string) {
	t.Helper()
	dir := filepath.Join(e.baseLogsDir, string(logType))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	path := filepath.Join(dir, date+logFileSuffixes[logType])
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadLogs_RangeAndNormalization(t *testing.T) {
	t.Parallel()
	e := newTestExporter(t)
	writeLogFile(t, e, LogTypeEmotions, "2026-08-28",
		`[{"timestamp": "2026-08-28T09:00:00Z", "emotion_category": "negative"}]`)
	writeLogFile(t, e, LogTypeEmotions, "2026-08-29",
		`{"timestamp": "2026-08-29T09:00:00Z", "emotion_category": "positive"}`)
	writeLogFile(t, e, LogTypeEmotions, "2026-08-30", `{broken`)

	logs, err := e.LoadLogs(LogTypeEmotions, "2026-08-28", "2026-08-30")
	if err != nil {
		t.Fatalf("LoadLogs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d logs, want 2 with the malformed day skipped", len(logs))
	}
}

func TestLoadLogs_BadDates(t *testing.T) {
	t.Parallel()
	e := newTestExporter(t)

	if _, err := e.LoadLogs(LogTypeEmotions, "28-08-2026", "2026-08-30"); err == nil {
		t.Fatal("expected error for bad start date")
	}
	if _, err := e.LoadLogs(LogTypeEmotions, "2026-08-30", "2026-08-28"); err == nil {
		t.Fatal("expected error for inverted range")
	}
	if _, err := e.LoadLogs("unknown", "2026-08-28", "2026-08-30"); err == nil {
		t.Fatal("expected error for unknown log type")
	}
}

func TestExportCSV(t *testing.T) {
	t.Parallel()
	e := newTestExporter(t)
	writeLogFile(t, e, LogTypeEmotions, "2026-08-29",
		`[{"timestamp": "2026-08-29T09:00:00Z", "emotion_category": "negative", "keywords": ["우울"]},
		  {"timestamp": "2026-08-29T10:00:00Z", "emotion_category": "positive"}]`)

	path, err := e.ExportCSV(LogTypeEmotions, "2026-08-29", "2026-08-29")
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	content := strings.TrimPrefix(string(data), "\xef\xbb\xbf")
	if content == string(data) {
		t.Fatal("export missing UTF-8 BOM")
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header plus 2 rows: %q", len(lines), lines)
	}
	if lines[0] != "emotion_category,keywords,timestamp" {
		t.Fatalf("header = %q, want sorted union of keys", lines[0])
	}
	if !strings.Contains(lines[1], `"[""우울""]"`) {
		t.Fatalf("nested value not JSON encoded: %q", lines[1])
	}
}

func TestExportCSV_NoLogs(t *testing.T) {
	t.Parallel()
	e := newTestExporter(t)

	if _, err := e.ExportCSV(LogTypeEmotions, "2026-08-28", "2026-08-29"); err == nil {
		t.Fatal("expected error when there is nothing to export")
	}
}

func TestExportJSON(t *testing.T) {
	t.Parallel()
	e := newTestExporter(t)
	writeLogFile(t, e, LogTypePhishing, "2026-08-29",
		`[{"timestamp": "2026-08-29T09:00:00Z", "risk_level": "high"}]`)

	path, err := e.ExportJSON(LogTypePhishing, "2026-08-29", "2026-08-29")
	if err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}

	var out jsonExport
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal export: %v", err)
	}
	if out.ExportInfo.TotalLogs != 1 || out.ExportInfo.LogType != LogTypePhishing {
		t.Fatalf("export info = %+v", out.ExportInfo)
	}
	if len(out.Logs) != 1 || out.Logs[0]["risk_level"] != "high" {
		t.Fatalf("logs = %+v", out.Logs)
	}
}

func TestGenerateConversationReport(t *testing.T) {
	t.Parallel()
	e := newTestExporter(t)
	writeLogFile(t, e, LogTypeConversations, "2026-08-28",
		`[{"timestamp": "2026-08-28T09:00:00Z", "keywords": ["건강", "병원"]},
		  {"timestamp": "2026-08-28T10:00:00Z", "keywords": ["건강"]}]`)
	writeLogFile(t, e, LogTypeConversations, "2026-08-29",
		`[{"timestamp": "2026-08-29T09:00:00Z"}]`)

	path, err := e.GenerateConversationReport("2026-08-28", "2026-08-29")
	if err != nil {
		t.Fatalf("GenerateConversationReport: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}

	var report ConversationReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshal report: %v", err)
	}
	if report.TotalConversations != 3 {
		t.Fatalf("total = %d, want 3", report.TotalConversations)
	}
	if report.DailyCounts["2026-08-28"] != 2 || report.DailyCounts["2026-08-29"] != 1 {
		t.Fatalf("daily counts = %+v", report.DailyCounts)
	}
	if report.TopKeywords["건강"] != 2 || report.TopKeywords["병원"] != 1 {
		t.Fatalf("top keywords = %+v", report.TopKeywords)
	}
}
