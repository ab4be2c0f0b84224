package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/fileutils"
)

// Embedder turns texts into vectors, one per input.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
}

type storedChunk struct {
	Source  string    `json:"source"`
	Content string    `json:"content"`
	Vector  []float64 `json:"vector"`
}

// SearchResult is one similarity hit.
type SearchResult struct {
	Source  string  `json:"source"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Store is a JSON-persisted embedding index with cosine similarity search.
type Store struct {
	path     string
	embedder Embedder
	log      *zap.Logger

	mu     sync.RWMutex
	chunks []storedChunk
}

// NewStore opens the index at path, loading any persisted chunks. A missing
// file starts an empty index.
func NewStore(path string, embedder Embedder, logger *zap.Logger) (*Store, error) {
	if embedder == nil {
		return nil, errors.New("NewStore: embedder is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, embedder: embedder, log: logger}

	b, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("NewStore: %w", err)
		}
		return s, nil
	}
	chunks, err := fileutils.DecodeObjectOrArray[storedChunk](b)
	if err != nil {
		return nil, fmt.Errorf("NewStore: corrupt index %s: %w", path, err)
	}
	s.chunks = chunks
	logger.Info("embedding index loaded", zap.String("path", path), zap.Int("chunks", len(chunks)))
	return s, nil
}

// Count returns the number of indexed chunks.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// AddDocuments chunks, embeds and indexes docs, then persists the index.
// It returns the number of chunks added.
func (s *Store) AddDocuments(ctx context.Context, docs []Document, chunkSize, overlap int) (int, error) {
	split := SplitDocuments(docs, chunkSize, overlap)
	if len(split) == 0 {
		return 0, nil
	}

	texts := make([]string, len(split))
	for i, c := range split {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("AddDocuments: %w", err)
	}
	if len(vectors) != len(split) {
		return 0, fmt.Errorf("AddDocuments: got %d vectors for %d chunks", len(vectors), len(split))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range split {
		s.chunks = append(s.chunks, storedChunk{
			Source:  c.Source,
			Content: c.Content,
			Vector:  vectors[i],
		})
	}
	if err := s.persistLocked(); err != nil {
		return 0, fmt.Errorf("AddDocuments: %w", err)
	}

	s.log.Info("documents indexed",
		zap.Int("documents", len(docs)),
		zap.Int("chunks_added", len(split)),
		zap.Int("chunks_total", len(s.chunks)))
	return len(split), nil
}

// Search embeds the query and returns the k most similar chunks, best first.
func (s *Store) Search(ctx context.Context, query string, k int) ([]SearchResult, error) {
	if k <= 0 {
		k = 3
	}

	s.mu.RLock()
	empty := len(s.chunks) == 0
	s.mu.RUnlock()
	if empty {
		return nil, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("Search: %w", err)
	}
	queryVec := vectors[0]

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]SearchResult, 0, len(s.chunks))
	for _, c := range s.chunks {
		results = append(results, SearchResult{
			Source:  c.Source,
			Content: c.Content,
			Score:   cosineSimilarity(queryVec, c.Vector),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Clear drops every indexed chunk and removes the persisted index file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("Clear: %w", err)
	}
	s.log.Info("embedding index cleared", zap.String("path", s.path))
	return nil
}

func (s *Store) persistLocked() error {
	return fileutils.WriteJSONFileAtomic(s.path, s.chunks, false)
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
