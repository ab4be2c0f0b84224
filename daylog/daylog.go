// Package daylog stores application records as one JSON file per calendar
// date, e.g. logs/emotions/2026-08-30_emotion_log.json. A day file holds
// either a single record object or an array of records; readers tolerate
// both shapes.
package daylog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/fileutils"
)

// DateFormat is the calendar-date layout encoded in every day-file name.
const DateFormat = "2006-01-02"

// DayFile is the raw content of one day's log file.
type DayFile struct {
	Date string // YYYY-MM-DD, from the file name
	Data []byte
}

// Store reads and appends day files under a single directory.
// Not safe for concurrent appenders; callers serialize externally.
type Store struct {
	dir    string
	suffix string
	log    *zap.Logger
}

// NewStore creates the directory if missing. suffix is the file-name tail
// after the date, e.g. "_emotion_log.json".
func NewStore(dir, suffix string, logger *zap.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("NewStore: dir is empty")
	}
	if suffix == "" {
		return nil, errors.New("NewStore: suffix is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewStore: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir, suffix: suffix, log: logger}, nil
}

func (s *Store) Dir() string { return s.dir }

// Path returns the day-file path for the given date.
func (s *Store) Path(date time.Time) string {
	return filepath.Join(s.dir, date.Format(DateFormat)+s.suffix)
}

// Append adds one record to the given date's file, creating it as a
// single-element array when absent. A corrupt existing file is replaced
// with a fresh array after a warning; the old content is not recoverable.
func (s *Store) Append(date time.Time, record any) error {
	path := s.Path(date)

	var records []json.RawMessage
	if b, err := os.ReadFile(path); err == nil {
		records, err = fileutils.DecodeObjectOrArray[json.RawMessage](b)
		if err != nil {
			s.log.Warn("day file is corrupt, starting fresh",
				zap.String("path", path), zap.Error(err))
			records = nil
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("Append: read %s: %w", path, err)
	}

	raw, err := fileutils.MarshalJSON(record, false)
	if err != nil {
		return fmt.Errorf("Append: marshal record: %w", err)
	}
	records = append(records, json.RawMessage(raw))

	if err := fileutils.WriteJSONFileAtomic(path, records, true); err != nil {
		return fmt.Errorf("Append: %w", err)
	}
	return nil
}

// ReadDay returns the raw bytes of one date's file. Missing files report
// ok=false without logging; unreadable files warn and report ok=false.
func (s *Store) ReadDay(date time.Time) ([]byte, bool) {
	path := s.Path(date)
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Warn("failed to read day file", zap.String("path", path), zap.Error(err))
		}
		return nil, false
	}
	return b, true
}

// ReadRange returns day files for every date from start through end
// inclusive, oldest first. Missing days are skipped.
func (s *Store) ReadRange(start, end time.Time) []DayFile {
	var files []DayFile
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		b, ok := s.ReadDay(d)
		if !ok {
			continue
		}
		files = append(files, DayFile{Date: d.Format(DateFormat), Data: b})
	}
	return files
}
