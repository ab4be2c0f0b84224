package rag

import (
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// chunk boundary separators, tried from most to least preferred.
var chunkSeparators = []string{"\n\n", "\n", ".", " "}

// SplitText splits text into chunks of at most size runes, overlapping by
// overlap runes. Cuts prefer paragraph, line, sentence and word boundaries
// in that order, falling back to a hard cut.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			return []string{trimmed}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			if trimmed := strings.TrimSpace(string(runes[start:])); trimmed != "" {
				chunks = append(chunks, trimmed)
			}
			break
		}

		cut := splitPoint(runes[start:end]) + start
		if trimmed := strings.TrimSpace(string(runes[start:cut])); trimmed != "" {
			chunks = append(chunks, trimmed)
		}

		next := cut - overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return chunks
}

// splitPoint returns the rune offset to cut window at, keeping the
// separator with the preceding chunk. Cuts in the first half of the window
// are rejected so chunks stay reasonably sized.
func splitPoint(window []rune) int {
	text := string(window)
	for _, sep := range chunkSeparators {
		idx := strings.LastIndex(text, sep)
		if idx < 0 {
			continue
		}
		at := utf8.RuneCountInString(text[:idx]) + utf8.RuneCountInString(sep)
		if at > len(window)/2 {
			return at
		}
	}
	return len(window)
}

// SplitDocuments chunks each document, preserving its source on every chunk.
func SplitDocuments(docs []Document, size, overlap int) []Document {
	var out []Document
	for _, doc := range docs {
		for _, chunk := range SplitText(doc.Content, size, overlap) {
			out = append(out, Document{Source: doc.Source, Content: chunk})
		}
	}
	return out
}
