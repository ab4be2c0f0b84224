package emotion

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var testNow = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

func newTestMonitor(t *testing.T, logger *zap.Logger) *TrendMonitor {
	t.Helper()
	root := t.TempDir()
	m, err := NewTrendMonitor(filepath.Join(root, "emotions"), filepath.Join(root, "reports"), DefaultRiskConfig(), logger)
	if err != nil {
		t.Fatalf("NewTrendMonitor: %v", err)
	}
	m.Now = func() time.Time { return testNow }
	return m
}

func writeDayFile(t *testing.T, m *TrendMonitor, daysAgo int, entries []LogEntry) {
	t.Helper()
	date := testNow.AddDate(0, 0, -daysAgo).Format("2006-01-02")
	path := filepath.Join(m.logs.Dir(), date+LogFileSuffix)
	b, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func entriesFor(daysAgo int, categories ...string) []LogEntry {
	date := testNow.AddDate(0, 0, -daysAgo).Format("2006-01-02")
	out := make([]LogEntry, 0, len(categories))
	for i, cat := range categories {
		out = append(out, LogEntry{
			Timestamp:       fmt.Sprintf("%sT%02d:00:00Z", date, 8+i),
			EmotionCategory: cat,
		})
	}
	return out
}

func TestLoadRecentLogs_IdempotentAndSorted(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	writeDayFile(t, m, 1, []LogEntry{
		{Timestamp: "2026-08-29T12:00:00Z", EmotionCategory: "negative"},
		{EmotionCategory: "neutral"}, // no timestamp, sorts first
	})
	writeDayFile(t, m, 0, entriesFor(0, "positive"))

	first := m.LoadRecentLogs(7)
	second := m.LoadRecentLogs(7)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("load is not idempotent")
	}
	if len(first) != 3 {
		t.Fatalf("len=%d", len(first))
	}
	if first[0].Timestamp != "" {
		t.Fatalf("expected timestamp-less entry first, got %q", first[0].Timestamp)
	}
	if first[1].Timestamp >= first[2].Timestamp {
		t.Fatalf("not sorted: %q then %q", first[1].Timestamp, first[2].Timestamp)
	}
}

func TestLoadRecentLogs_SingleObjectFile(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	path := filepath.Join(m.logs.Dir(), testNow.Format("2006-01-02")+LogFileSuffix)
	if err := os.WriteFile(path, []byte(`{"timestamp":"2026-08-30T09:00:00Z","emotion_category":"positive"}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries := m.LoadRecentLogs(1)
	if len(entries) != 1 || entries[0].EmotionCategory != "positive" {
		t.Fatalf("entries=%v", entries)
	}
}

func TestLoadRecentLogs_MalformedFileWarnsAndContinues(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	m := newTestMonitor(t, zap.New(core))

	// Six valid days plus one corrupt one.
	for i := 1; i <= 6; i++ {
		writeDayFile(t, m, i, entriesFor(i, "neutral"))
	}
	corrupt := filepath.Join(m.logs.Dir(), testNow.Format("2006-01-02")+LogFileSuffix)
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}

	entries := m.LoadRecentLogs(7)
	if len(entries) != 6 {
		t.Fatalf("len=%d, want entries from the six valid files only", len(entries))
	}
	if logs.FilterMessage("skipping malformed emotion log file").Len() != 1 {
		t.Fatalf("expected exactly one warning, log=%v", logs.All())
	}
}

func TestCalculateDailyEmotions_RatioInvariant(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	entries := append(entriesFor(0, "positive", "positive", "negative"), entriesFor(1, "neutral", "negative")...)
	daily := m.CalculateDailyEmotions(entries)
	if len(daily) != 2 {
		t.Fatalf("days=%d", len(daily))
	}
	for date, s := range daily {
		sum := s.PositiveRatio + s.NegativeRatio + s.NeutralRatio
		if math.Abs(sum-1.0) > 1e-9 {
			t.Fatalf("%s: ratios sum to %v", date, sum)
		}
		if s.PositiveRatio < 0 || s.NegativeRatio < 0 || s.NeutralRatio < 0 {
			t.Fatalf("%s: negative ratio in %+v", date, s)
		}
	}
}

func TestCalculateDailyEmotions_SkipsBadTimestampWithWarning(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	m := newTestMonitor(t, zap.New(core))

	entries := []LogEntry{
		{Timestamp: "not-a-time", EmotionCategory: "negative"},
		{Timestamp: "2026-08-30T10:00:00Z", EmotionCategory: "positive"},
	}
	daily := m.CalculateDailyEmotions(entries)
	if len(daily) != 1 {
		t.Fatalf("days=%d", len(daily))
	}
	if daily["2026-08-30"].PositiveRatio != 1.0 {
		t.Fatalf("stats=%+v", daily["2026-08-30"])
	}
	if logs.FilterMessage("skipping entry with unparsable timestamp").Len() != 1 {
		t.Fatalf("expected one warning")
	}
}

func TestCalculateDailyEmotions_UnknownCategoryCountsAsNeutral(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	daily := m.CalculateDailyEmotions([]LogEntry{
		{Timestamp: "2026-08-30T10:00:00Z", EmotionCategory: "confused"},
		{Timestamp: "2026-08-30T11:00:00Z"},
	})
	s := daily["2026-08-30"]
	if s.NeutralRatio != 1.0 || s.DominantEmotion != CategoryNeutral {
		t.Fatalf("stats=%+v", s)
	}
}

func TestDominantEmotion_TieBreakPrefersPositive(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	daily := m.CalculateDailyEmotions(entriesFor(0, "positive", "positive", "positive", "negative", "negative", "negative"))
	s := daily[testNow.Format("2006-01-02")]
	if s.DominantEmotion != CategoryPositive {
		t.Fatalf("dominant=%q, want positive on a 3-3 tie", s.DominantEmotion)
	}
}

func TestDetectDepressionRisk_InsufficientHistory(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	// Only 3 distinct dates, all fully negative.
	for i := 0; i < 3; i++ {
		writeDayFile(t, m, i, entriesFor(i, "negative", "negative"))
	}
	if m.DetectDepressionRisk(7, 0.6) {
		t.Fatalf("expected false with only 3 days of history")
	}
}

func TestDetectDepressionRisk_Trigger(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	// 7 distinct days: 5 heavily negative, 2 positive. 5/7 >= 70%.
	for i := 0; i < 5; i++ {
		writeDayFile(t, m, i, entriesFor(i, "negative", "negative", "positive"))
	}
	for i := 5; i < 7; i++ {
		writeDayFile(t, m, i, entriesFor(i, "positive"))
	}
	if !m.DetectDepressionRisk(7, 0.6) {
		t.Fatalf("expected risk with 5/7 high-negative days")
	}
}

func TestDetectDepressionRisk_BelowCount(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	// 7 distinct days but only 4 high-negative (~57%).
	for i := 0; i < 4; i++ {
		writeDayFile(t, m, i, entriesFor(i, "negative", "negative", "positive"))
	}
	for i := 4; i < 7; i++ {
		writeDayFile(t, m, i, entriesFor(i, "positive"))
	}
	if m.DetectDepressionRisk(7, 0.6) {
		t.Fatalf("expected false with 4/7 high-negative days")
	}
}

func TestGenerateWeeklyReport_TopKeywordsOrdering(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	date := testNow.Format("2006-01-02")
	entries := []LogEntry{
		{Timestamp: date + "T08:00:00Z", EmotionCategory: "neutral", Keywords: []string{"a", "c"}},
		{Timestamp: date + "T09:00:00Z", EmotionCategory: "neutral", Keywords: []string{"b", "a", "c"}},
		{Timestamp: date + "T10:00:00Z", EmotionCategory: "neutral", Keywords: []string{"a", "b", "c", "b"}},
		{Timestamp: date + "T11:00:00Z", EmotionCategory: "neutral", Keywords: []string{"a", "b", "b", "a"}},
	}
	writeDayFile(t, m, 0, entries)

	report := m.GenerateWeeklyReport()
	// a:5 b:5 c:3; a seen before b.
	want := []KeywordCount{{Keyword: "a", Count: 5}, {Keyword: "b", Count: 5}, {Keyword: "c", Count: 3}}
	if !reflect.DeepEqual(report.TopKeywords, want) {
		t.Fatalf("top_keywords=%v", report.TopKeywords)
	}
}

func TestGenerateWeeklyReport_OverallStatsUnweightedMean(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	// Day 0: 1 entry, fully negative. Day 1: 4 entries, fully positive.
	writeDayFile(t, m, 0, entriesFor(0, "negative"))
	writeDayFile(t, m, 1, entriesFor(1, "positive", "positive", "positive", "positive"))

	report := m.GenerateWeeklyReport()
	if math.Abs(report.OverallStats.NegativeRatio-0.5) > 1e-9 {
		t.Fatalf("negative_ratio=%v, want unweighted 0.5", report.OverallStats.NegativeRatio)
	}
	if math.Abs(report.OverallStats.PositiveRatio-0.5) > 1e-9 {
		t.Fatalf("positive_ratio=%v", report.OverallStats.PositiveRatio)
	}
	if report.OverallStats.DominantEmotion != CategoryPositive {
		t.Fatalf("dominant=%q, want positive by tie-break", report.OverallStats.DominantEmotion)
	}
}

func TestSaveWeeklyReport_RoundTrip(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	writeDayFile(t, m, 0, entriesFor(0, "positive", "negative", "neutral"))

	report := m.GenerateWeeklyReport()
	path, err := m.SaveWeeklyReport(&report)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if filepath.Base(path) != "weekly_emotion_report_"+report.Period.End+".json" {
		t.Fatalf("path=%s", path)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	var back WeeklyReport
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Period != report.Period {
		t.Fatalf("period=%+v want %+v", back.Period, report.Period)
	}
	if back.DepressionRisk != report.DepressionRisk {
		t.Fatalf("depression_risk=%v", back.DepressionRisk)
	}
	if math.Abs(back.OverallStats.PositiveRatio-report.OverallStats.PositiveRatio) > 1e-9 {
		t.Fatalf("overall=%+v want %+v", back.OverallStats, report.OverallStats)
	}

	// Same-day save overwrites without error.
	if _, err := m.SaveWeeklyReport(&report); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestSaveWeeklyReport_GeneratesWhenNil(t *testing.T) {
	t.Parallel()

	m := newTestMonitor(t, nil)
	path, err := m.SaveWeeklyReport(nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}
