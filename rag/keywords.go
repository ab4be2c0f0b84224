package rag

import (
	"bufio"
	"os"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

func defaultStopwords() []string {
	return []string{
		"이", "그", "저", "것", "수", "를", "은", "는", "가", "으로", "에서",
		"하고", "하는", "하다", "한", "들", "그것", "그리고", "또는", "그런",
		"이런", "저런", "하지만", "입니다", "있습니다",
	}
}

// KeywordExtractor pulls frequent content words out of Korean text.
type KeywordExtractor struct {
	stopwords map[string]bool
	log       *zap.Logger
}

// NewKeywordExtractor builds an extractor with the built-in stopwords plus
// one stopword per line from stopwordsPath when the file exists.
func NewKeywordExtractor(stopwordsPath string, logger *zap.Logger) *KeywordExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	stopwords := make(map[string]bool)
	for _, w := range defaultStopwords() {
		stopwords[w] = true
	}

	if stopwordsPath != "" {
		f, err := os.Open(stopwordsPath)
		if err != nil {
			logger.Warn("stopword file not readable, using defaults",
				zap.String("path", stopwordsPath), zap.Error(err))
		} else {
			defer f.Close()
			n := 0
			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				if w := strings.TrimSpace(scanner.Text()); w != "" {
					stopwords[w] = true
					n++
				}
			}
			logger.Info("custom stopwords loaded", zap.String("path", stopwordsPath), zap.Int("count", n))
		}
	}

	return &KeywordExtractor{stopwords: stopwords, log: logger}
}

// Extract returns the topN most frequent content words across texts,
// most frequent first with first-seen order breaking ties.
func (e *KeywordExtractor) Extract(texts []string, topN int) []string {
	if topN <= 0 {
		topN = 10
	}

	counts := make(map[string]int)
	var order []string
	for _, text := range texts {
		for _, word := range tokenize(text) {
			if e.stopwords[word] || utf8.RuneCountInString(word) < 2 {
				continue
			}
			if counts[word] == 0 {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

// tokenize lowercases text, replaces punctuation with spaces and splits on
// whitespace. Hangul, letters, digits and underscore survive.
func tokenize(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return strings.Fields(cleaned)
}
