package emotion

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/daylog"
	"github.com/bokdori-ai/bokdori/fileutils"
)

// LogFileSuffix is the tail of every per-day emotion log file name,
// after the YYYY-MM-DD date prefix.
const LogFileSuffix = "_emotion_log.json"

// RiskConfig carries the sustained-negative-emotion alert parameters.
// Both the monitor's report generation and the alert manager read the same
// values, so they live in one place instead of per-call defaults.
type RiskConfig struct {
	// Threshold is the per-day negative ratio at or above which a day
	// counts as a high-negative day.
	Threshold float64
	// Days is the trailing calendar window examined for sustained risk.
	Days int
}

func DefaultRiskConfig() RiskConfig {
	return RiskConfig{Threshold: 0.6, Days: 7}
}

// DailyStats is the per-day emotion distribution, derived fresh from raw
// logs on every aggregation call. Ratios sum to 1 for any day that appears.
type DailyStats struct {
	PositiveRatio   float64 `json:"positive_ratio"`
	NegativeRatio   float64 `json:"negative_ratio"`
	NeutralRatio    float64 `json:"neutral_ratio"`
	DominantEmotion string  `json:"dominant_emotion"`
}

// KeywordCount is one keyword with its frequency across a report window.
type KeywordCount struct {
	Keyword string `json:"keyword"`
	Count   int    `json:"count"`
}

// ReportPeriod is the inclusive calendar range a weekly report covers.
type ReportPeriod struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyReport is the persisted trailing-7-day summary artifact.
type WeeklyReport struct {
	Period         ReportPeriod          `json:"period"`
	GeneratedAt    string                `json:"generated_at"`
	OverallStats   DailyStats            `json:"overall_stats"`
	DailyStats     map[string]DailyStats `json:"daily_stats"`
	TopKeywords    []KeywordCount        `json:"top_keywords"`
	DepressionRisk bool                  `json:"depression_risk"`
}

// TrendMonitor reads daily emotion-log files, computes per-day emotion
// distributions, detects sustained-depression risk, and produces weekly
// summary reports.
//
// All file and parse failures during loading degrade to a logged warning
// and a skipped file; only report persistence surfaces errors.
type TrendMonitor struct {
	logs       *daylog.Store
	reportsDir string
	risk       RiskConfig
	log        *zap.Logger

	// Now is the clock used to anchor trailing windows; overridable in tests.
	Now func() time.Time
}

// NewTrendMonitor creates the logs directory when missing. logger may be nil.
func NewTrendMonitor(logsDir, reportsDir string, risk RiskConfig, logger *zap.Logger) (*TrendMonitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if risk.Days <= 0 || risk.Threshold <= 0 {
		risk = DefaultRiskConfig()
	}
	store, err := daylog.NewStore(logsDir, LogFileSuffix, logger)
	if err != nil {
		return nil, fmt.Errorf("NewTrendMonitor: %w", err)
	}
	return &TrendMonitor{
		logs:       store,
		reportsDir: reportsDir,
		risk:       risk,
		log:        logger,
		Now:        time.Now,
	}, nil
}

// LoadRecentLogs returns all entries from the trailing `days` calendar days
// including today, sorted ascending by raw timestamp string (entries without
// a timestamp sort first). Missing day files are skipped silently; malformed
// ones are skipped with a warning. The result is never an error.
func (m *TrendMonitor) LoadRecentLogs(days int) []LogEntry {
	if days < 1 {
		return nil
	}

	end := m.Now()
	start := end.AddDate(0, 0, -(days - 1))

	var entries []LogEntry
	for _, f := range m.logs.ReadRange(start, end) {
		dayEntries, err := fileutils.DecodeObjectOrArray[LogEntry](f.Data)
		if err != nil {
			m.log.Warn("skipping malformed emotion log file",
				zap.String("date", f.Date), zap.Error(err))
			continue
		}
		entries = append(entries, dayEntries...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp < entries[j].Timestamp
	})
	return entries
}

// CalculateDailyEmotions buckets entries by the calendar date of their own
// timestamp (a file-name date that disagrees with an entry's timestamp is
// resolved in favor of the timestamp). Days with zero countable entries are
// omitted entirely.
func (m *TrendMonitor) CalculateDailyEmotions(entries []LogEntry) map[string]DailyStats {
	type counts struct {
		byCategory map[string]int
		total      int
	}
	days := make(map[string]*counts)

	for _, e := range entries {
		if e.Timestamp == "" {
			continue
		}
		ts, err := ParseEntryTime(e.Timestamp)
		if err != nil {
			m.log.Warn("skipping entry with unparsable timestamp",
				zap.String("timestamp", e.Timestamp), zap.Error(err))
			continue
		}
		date := ts.Format(daylog.DateFormat)
		c := days[date]
		if c == nil {
			c = &counts{byCategory: make(map[string]int, 3)}
			days[date] = c
		}
		c.byCategory[e.Category()]++
		c.total++
	}

	result := make(map[string]DailyStats, len(days))
	for date, c := range days {
		if c.total == 0 {
			continue
		}
		total := float64(c.total)
		result[date] = DailyStats{
			PositiveRatio:   float64(c.byCategory[CategoryPositive]) / total,
			NegativeRatio:   float64(c.byCategory[CategoryNegative]) / total,
			NeutralRatio:    float64(c.byCategory[CategoryNeutral]) / total,
			DominantEmotion: dominantCategory(func(cat string) float64 { return float64(c.byCategory[cat]) }),
		}
	}
	return result
}

// DetectDepressionRisk reports sustained negative sentiment: at least 70% of
// the trailing `days` dates have a negative ratio at or above threshold.
// Fewer than `days` distinct dates of data means insufficient history and
// always reports false.
func (m *TrendMonitor) DetectDepressionRisk(days int, threshold float64) bool {
	if days < 1 {
		return false
	}

	daily := m.CalculateDailyEmotions(m.LoadRecentLogs(days))

	dates := make([]string, 0, len(daily))
	for date := range daily {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	if len(dates) > days {
		dates = dates[len(dates)-days:]
	}
	if len(dates) < days {
		return false
	}

	highNegativeDays := 0
	for _, date := range dates {
		if daily[date].NegativeRatio >= threshold {
			highNegativeDays++
		}
	}
	return float64(highNegativeDays) >= float64(days)*0.7
}

// GenerateWeeklyReport aggregates the trailing 7 days. Overall ratios are
// the unweighted mean of the per-day ratios: a day with 2 entries counts the
// same as a day with 200.
func (m *TrendMonitor) GenerateWeeklyReport() WeeklyReport {
	const windowDays = 7

	entries := m.LoadRecentLogs(windowDays)
	daily := m.CalculateDailyEmotions(entries)

	now := m.Now()
	report := WeeklyReport{
		Period: ReportPeriod{
			Start: now.AddDate(0, 0, -(windowDays - 1)).Format(daylog.DateFormat),
			End:   now.Format(daylog.DateFormat),
		},
		GeneratedAt:    now.Format(time.RFC3339),
		DailyStats:     daily,
		TopKeywords:    topKeywords(entries, 10),
		DepressionRisk: m.DetectDepressionRisk(m.risk.Days, m.risk.Threshold),
	}

	if len(daily) > 0 {
		n := float64(len(daily))
		var overall DailyStats
		for _, s := range daily {
			overall.PositiveRatio += s.PositiveRatio
			overall.NegativeRatio += s.NegativeRatio
			overall.NeutralRatio += s.NeutralRatio
		}
		overall.PositiveRatio /= n
		overall.NegativeRatio /= n
		overall.NeutralRatio /= n
		overall.DominantEmotion = dominantCategory(func(cat string) float64 {
			switch cat {
			case CategoryPositive:
				return overall.PositiveRatio
			case CategoryNegative:
				return overall.NegativeRatio
			default:
				return overall.NeutralRatio
			}
		})
		report.OverallStats = overall
	} else {
		report.OverallStats = DailyStats{DominantEmotion: CategoryNeutral}
	}

	return report
}

// SaveWeeklyReport writes the report (generating one when nil) as indented
// UTF-8 JSON named by the report's end date, overwriting any same-day file.
// Returns the path written.
func (m *TrendMonitor) SaveWeeklyReport(report *WeeklyReport) (string, error) {
	if report == nil {
		r := m.GenerateWeeklyReport()
		report = &r
	}

	path := filepath.Join(m.reportsDir, fmt.Sprintf("weekly_emotion_report_%s.json", report.Period.End))
	if err := fileutils.WriteJSONFileAtomic(path, report, true); err != nil {
		return "", fmt.Errorf("SaveWeeklyReport: %w", err)
	}
	m.log.Info("weekly emotion report saved", zap.String("path", path))
	return path, nil
}

// topKeywords counts keyword occurrences across entries and returns up to
// max pairs sorted by count descending, ties broken by first-seen order.
func topKeywords(entries []LogEntry, max int) []KeywordCount {
	counts := make(map[string]int)
	var order []string
	for _, e := range entries {
		for _, kw := range e.Keywords {
			if _, seen := counts[kw]; !seen {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	ranked := make([]KeywordCount, 0, len(order))
	for _, kw := range order {
		ranked = append(ranked, KeywordCount{Keyword: kw, Count: counts[kw]})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	if len(ranked) > max {
		ranked = ranked[:max]
	}
	return ranked
}

// dominantCategory picks the category with the highest score; the first
// category in the fixed preference order wins ties.
func dominantCategory(score func(string) float64) string {
	best := categoryOrder[0]
	bestScore := score(best)
	for _, cat := range categoryOrder[1:] {
		if s := score(cat); s > bestScore {
			best = cat
			bestScore = s
		}
	}
	return best
}

// ParseEntryTime parses an entry timestamp as ISO-8601; a trailing Z is
// treated as UTC offset +00:00. Offsets, fractional seconds, a space
// separator, and bare dates are all accepted.
func ParseEntryTime(ts string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, ts)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("ParseEntryTime: %w", lastErr)
}
