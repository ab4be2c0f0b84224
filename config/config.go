// Package config loads and persists the assistant's JSON configuration.
// Missing files and unset fields fall back to defaults so a fresh checkout
// runs without any setup beyond the API key.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/fileutils"
)

type LLMConfig struct {
	ModelName       string  `json:"model_name"`
	EmbeddingModel  string  `json:"embedding_model"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int64   `json:"max_output_tokens"`
}

type RAGConfig struct {
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`
	TopK         int `json:"top_k"`
}

type PhishingConfig struct {
	Threshold    float64 `json:"threshold"`
	PatternsPath string  `json:"patterns_path"`
}

type EmotionConfig struct {
	RiskThreshold float64 `json:"risk_threshold"`
	RiskDays      int     `json:"risk_days"`
	PatternsPath  string  `json:"patterns_path"`
}

type PathsConfig struct {
	LogsDir       string `json:"logs_dir"`
	ReportsDir    string `json:"reports_dir"`
	AlertsDir     string `json:"alerts_dir"`
	ExportDir     string `json:"export_dir"`
	IndexPath     string `json:"index_path"`
	StopwordsPath string `json:"stopwords_path"`
}

type Config struct {
	LLM         LLMConfig      `json:"llm"`
	RAG         RAGConfig      `json:"rag"`
	Phishing    PhishingConfig `json:"phishing_detection"`
	Emotion     EmotionConfig  `json:"emotion_analysis"`
	Paths       PathsConfig    `json:"paths"`
	ShowSources bool           `json:"show_sources"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			ModelName:       "gpt-4o-mini",
			EmbeddingModel:  "text-embedding-3-small",
			Temperature:     0.7,
			MaxOutputTokens: 1000,
		},
		RAG: RAGConfig{
			ChunkSize:    1000,
			ChunkOverlap: 200,
			TopK:         3,
		},
		Phishing: PhishingConfig{
			Threshold:    0.7,
			PatternsPath: "config/phishing_patterns.json",
		},
		Emotion: EmotionConfig{
			RiskThreshold: 0.6,
			RiskDays:      7,
			PatternsPath:  "config/emotion_patterns.json",
		},
		Paths: PathsConfig{
			LogsDir:    "logs",
			ReportsDir: "data/reports",
			AlertsDir:  "logs/alerts",
			ExportDir:  "data/exports",
			IndexPath:  "data/rag/index.json",
		},
	}
}

// EmotionLogsDir is where per-day emotion logs live.
func (c Config) EmotionLogsDir() string {
	return filepath.Join(c.Paths.LogsDir, "emotions")
}

// ConversationLogsDir is where per-day conversation logs live.
func (c Config) ConversationLogsDir() string {
	return filepath.Join(c.Paths.LogsDir, "conversations")
}

// PhishingLogsDir is where per-day phishing assessments live.
func (c Config) PhishingLogsDir() string {
	return filepath.Join(c.Paths.LogsDir, "phishing")
}

// Load reads the config file at path. A missing file returns Default with a
// warning, and fields left unset in the file are filled with defaults.
func Load(path string, logger *zap.Logger) Config {
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("config file not found, using defaults", zap.String("path", path))
		} else {
			logger.Warn("failed to read config file, using defaults",
				zap.String("path", path), zap.Error(err))
		}
		return Default()
	}

	cfg := Default()
	if err := json.Unmarshal(b, &cfg); err != nil {
		logger.Warn("config file is invalid, using defaults",
			zap.String("path", path), zap.Error(err))
		return Default()
	}
	cfg.applyDefaults()
	logger.Info("config loaded", zap.String("path", path))
	return cfg
}

// Save writes cfg to path, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := fileutils.WriteJSONFileAtomic(path, cfg, true); err != nil {
		return fmt.Errorf("Save config: %w", err)
	}
	return nil
}

// applyDefaults fills zero-valued fields so partial config files keep
// sensible settings for everything they omit.
func (c *Config) applyDefaults() {
	def := Default()
	if c.LLM.ModelName == "" {
		c.LLM.ModelName = def.LLM.ModelName
	}
	if c.LLM.EmbeddingModel == "" {
		c.LLM.EmbeddingModel = def.LLM.EmbeddingModel
	}
	if c.LLM.Temperature <= 0 {
		c.LLM.Temperature = def.LLM.Temperature
	}
	if c.LLM.MaxOutputTokens <= 0 {
		c.LLM.MaxOutputTokens = def.LLM.MaxOutputTokens
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = def.RAG.ChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = def.RAG.ChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = def.RAG.TopK
	}
	if c.Phishing.Threshold <= 0 || c.Phishing.Threshold > 1 {
		c.Phishing.Threshold = def.Phishing.Threshold
	}
	if c.Phishing.PatternsPath == "" {
		c.Phishing.PatternsPath = def.Phishing.PatternsPath
	}
	if c.Emotion.RiskThreshold <= 0 || c.Emotion.RiskThreshold > 1 {
		c.Emotion.RiskThreshold = def.Emotion.RiskThreshold
	}
	if c.Emotion.RiskDays <= 0 {
		c.Emotion.RiskDays = def.Emotion.RiskDays
	}
	if c.Emotion.PatternsPath == "" {
		c.Emotion.PatternsPath = def.Emotion.PatternsPath
	}
	if c.Paths.LogsDir == "" {
		c.Paths.LogsDir = def.Paths.LogsDir
	}
	if c.Paths.ReportsDir == "" {
		c.Paths.ReportsDir = def.Paths.ReportsDir
	}
	if c.Paths.AlertsDir == "" {
		c.Paths.AlertsDir = def.Paths.AlertsDir
	}
	if c.Paths.ExportDir == "" {
		c.Paths.ExportDir = def.Paths.ExportDir
	}
	if c.Paths.IndexPath == "" {
		c.Paths.IndexPath = def.Paths.IndexPath
	}
}
