// Package export turns per-day log files into CSV and JSON artifacts for
// caregivers and downstream analysis.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/daylog"
	"github.com/bokdori-ai/bokdori/emotion"
	"github.com/bokdori-ai/bokdori/fileutils"
)

// LogType selects which per-day log family to export.
type LogType string

const (
	LogTypeEmotions      LogType = "emotions"
	LogTypeConversations LogType = "conversations"
	LogTypePhishing      LogType = "phishing"
)

var logFileSuffixes = map[LogType]string{
	LogTypeEmotions:      "_emotion_log.json",
	LogTypeConversations: "_conversation_log.json",
	LogTypePhishing:      "_phishing_log.json",
}

// ExportInfo describes one JSON export.
type ExportInfo struct {
	LogType    LogType           `json:"log_type"`
	Period     map[string]string `json:"period"`
	ExportedAt string            `json:"exported_at"`
	TotalLogs  int               `json:"total_logs"`
}

type jsonExport struct {
	ExportInfo ExportInfo       `json:"export_info"`
	Logs       []map[string]any `json:"logs"`
}

// Exporter reads per-day logs under baseLogsDir/<type>/ and writes export
// artifacts into exportDir.
type Exporter struct {
	baseLogsDir string
	exportDir   string
	log         *zap.Logger

	Now func() time.Time
}

func NewExporter(baseLogsDir, exportDir string, logger *zap.Logger) (*Exporter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("NewExporter: %w", err)
	}
	logger.Info("log exporter ready",
		zap.String("logs_dir", baseLogsDir), zap.String("export_dir", exportDir))
	return &Exporter{
		baseLogsDir: baseLogsDir,
		exportDir:   exportDir,
		log:         logger,
		Now:         time.Now,
	}, nil
}

// LoadLogs collects every record of the given type between startDate and
// endDate inclusive, both formatted YYYY-MM-DD. Malformed day files are
// skipped with a warning.
func (e *Exporter) LoadLogs(logType LogType, startDate, endDate string) ([]map[string]any, error) {
	suffix, ok := logFileSuffixes[logType]
	if !ok {
		return nil, fmt.Errorf("LoadLogs: unknown log type %q", logType)
	}
	start, err := time.Parse(daylog.DateFormat, startDate)
	if err != nil {
		return nil, fmt.Errorf("LoadLogs: bad start date %q: %w", startDate, err)
	}
	end, err := time.Parse(daylog.DateFormat, endDate)
	if err != nil {
		return nil, fmt.Errorf("LoadLogs: bad end date %q: %w", endDate, err)
	}
	if end.Before(start) {
		return nil, fmt.Errorf("LoadLogs: end date %s before start date %s", endDate, startDate)
	}

	store, err := daylog.NewStore(filepath.Join(e.baseLogsDir, string(logType)), suffix, e.log)
	if err != nil {
		return nil, fmt.Errorf("LoadLogs: %w", err)
	}

	var logs []map[string]any
	for _, f := range store.ReadRange(start, end) {
		records, err := fileutils.DecodeObjectOrArray[map[string]any](f.Data)
		if err != nil {
			e.log.Warn("skipping malformed log file",
				zap.String("type", string(logType)), zap.String("date", f.Date), zap.Error(err))
			continue
		}
		logs = append(logs, records...)
	}
	return logs, nil
}

// ExportCSV writes the logs of a period as a CSV file and returns its path.
// The header is the sorted union of all record keys, and the file starts
// with a UTF-8 BOM so spreadsheet tools pick up the encoding.
func (e *Exporter) ExportCSV(logType LogType, startDate, endDate string) (string, error) {
	logs, err := e.LoadLogs(logType, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("ExportCSV: %w", err)
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("ExportCSV: no %s logs between %s and %s", logType, startDate, endDate)
	}

	keySet := make(map[string]bool)
	for _, record := range logs {
		for k := range record {
			keySet[k] = true
		}
	}
	header := make([]string, 0, len(keySet))
	for k := range keySet {
		header = append(header, k)
	}
	sort.Strings(header)

	var buf bytes.Buffer
	buf.WriteString("\xef\xbb\xbf")
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("ExportCSV: %w", err)
	}
	row := make([]string, len(header))
	for _, record := range logs {
		for i, k := range header {
			row[i] = csvCell(record[k])
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("ExportCSV: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("ExportCSV: %w", err)
	}

	path := filepath.Join(e.exportDir, fmt.Sprintf("%s_%s_to_%s.csv", logType, startDate, endDate))
	if err := fileutils.WriteFileAtomicSameDir(path, bytes.TrimRight(buf.Bytes(), "\n"), 0o644); err != nil {
		return "", fmt.Errorf("ExportCSV: %w", err)
	}
	e.log.Info("CSV export written", zap.String("path", path), zap.Int("logs", len(logs)))
	return path, nil
}

// csvCell renders a decoded JSON value for a CSV field. Nested values are
// re-encoded as JSON.
func csvCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		return fmt.Sprintf("%t", val)
	default:
		b, err := fileutils.MarshalJSON(val, false)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}

// ExportJSON writes the logs of a period, with export metadata, as a pretty
// JSON file and returns its path.
func (e *Exporter) ExportJSON(logType LogType, startDate, endDate string) (string, error) {
	logs, err := e.LoadLogs(logType, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("ExportJSON: %w", err)
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("ExportJSON: no %s logs between %s and %s", logType, startDate, endDate)
	}

	out := jsonExport{
		ExportInfo: ExportInfo{
			LogType:    logType,
			Period:     map[string]string{"start_date": startDate, "end_date": endDate},
			ExportedAt: e.Now().Format(time.RFC3339),
			TotalLogs:  len(logs),
		},
		Logs: logs,
	}

	path := filepath.Join(e.exportDir, fmt.Sprintf("%s_%s_to_%s.json", logType, startDate, endDate))
	if err := fileutils.WriteJSONFileAtomic(path, out, true); err != nil {
		return "", fmt.Errorf("ExportJSON: %w", err)
	}
	e.log.Info("JSON export written", zap.String("path", path), zap.Int("logs", len(logs)))
	return path, nil
}

// ConversationReport summarizes conversation activity over a period.
type ConversationReport struct {
	Period             map[string]string `json:"period"`
	GeneratedAt        string            `json:"generated_at"`
	TotalConversations int               `json:"total_conversations"`
	DailyCounts        map[string]int    `json:"daily_conversation_counts"`
	TopKeywords        map[string]int    `json:"top_keywords"`
}

// GenerateConversationReport aggregates conversation logs into a report
// file and returns its path.
func (e *Exporter) GenerateConversationReport(startDate, endDate string) (string, error) {
	logs, err := e.LoadLogs(LogTypeConversations, startDate, endDate)
	if err != nil {
		return "", fmt.Errorf("GenerateConversationReport: %w", err)
	}
	if len(logs) == 0 {
		return "", fmt.Errorf("GenerateConversationReport: no conversation logs between %s and %s", startDate, endDate)
	}

	dailyCounts := make(map[string]int)
	keywordCounts := make(map[string]int)
	for _, record := range logs {
		if ts, ok := record["timestamp"].(string); ok && ts != "" {
			if parsed, err := emotion.ParseEntryTime(ts); err == nil {
				dailyCounts[parsed.UTC().Format(daylog.DateFormat)]++
			}
		}
		if keywords, ok := record["keywords"].([]any); ok {
			for _, kw := range keywords {
				if s, ok := kw.(string); ok && s != "" {
					keywordCounts[s]++
				}
			}
		}
	}

	report := ConversationReport{
		Period:             map[string]string{"start_date": startDate, "end_date": endDate},
		GeneratedAt:        e.Now().Format(time.RFC3339),
		TotalConversations: len(logs),
		DailyCounts:        dailyCounts,
		TopKeywords:        topCounts(keywordCounts, 20),
	}

	path := filepath.Join(e.exportDir, fmt.Sprintf("conversation_report_%s_to_%s.json", startDate, endDate))
	if err := fileutils.WriteJSONFileAtomic(path, report, true); err != nil {
		return "", fmt.Errorf("GenerateConversationReport: %w", err)
	}
	e.log.Info("conversation report written", zap.String("path", path))
	return path, nil
}

func topCounts(counts map[string]int, n int) map[string]int {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})
	if len(keys) > n {
		keys = keys[:n]
	}
	top := make(map[string]int, len(keys))
	for _, k := range keys {
		top[k] = counts[k]
	}
	return top
}
