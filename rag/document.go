// Package rag loads reference documents, splits them into chunks and serves
// similarity search over embedded chunks for grounded assistant answers.
package rag

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Document is one loaded source text.
type Document struct {
	Source  string `json:"source"`
	Content string `json:"content"`
}

var textExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".text": true,
	".csv":  true,
}

// LoadDocument reads a single file as a document. JSON files are validated
// and kept as their raw text so their content stays searchable.
func LoadDocument(path string) (Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("LoadDocument: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ext == ".json":
		var v any
		if err := json.Unmarshal(b, &v); err != nil {
			return Document{}, fmt.Errorf("LoadDocument %s: invalid JSON: %w", path, err)
		}
	case textExtensions[ext]:
	default:
		return Document{}, fmt.Errorf("LoadDocument %s: unsupported extension %q", path, ext)
	}

	content := strings.TrimSpace(string(b))
	if content == "" {
		return Document{}, fmt.Errorf("LoadDocument %s: file is empty", path)
	}
	return Document{Source: path, Content: content}, nil
}

// LoadDirectory walks dir recursively and loads every supported file.
// Files that fail to load are skipped with a warning.
func LoadDirectory(dir string, logger *zap.Logger) ([]Document, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var docs []Document
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if !textExtensions[ext] && ext != ".json" {
			return nil
		}
		doc, err := LoadDocument(path)
		if err != nil {
			logger.Warn("skipping unreadable document", zap.String("path", path), zap.Error(err))
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("LoadDirectory %s: %w", dir, err)
	}

	logger.Info("documents loaded", zap.String("dir", dir), zap.Int("count", len(docs)))
	return docs, nil
}
