package phishing

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/fileutils"
)

// PatternSet holds the tiered keyword lists the detector scans for.
type PatternSet struct {
	HighRisk   []string `json:"high_risk"`
	MediumRisk []string `json:"medium_risk"`
	LowRisk    []string `json:"low_risk"`
}

// DefaultPatterns returns the built-in Korean voice phishing keyword tiers.
func DefaultPatterns() PatternSet {
	return PatternSet{
		HighRisk:   []string{"계좌번호", "보안코드", "인증번호", "비밀번호", "OTP"},
		MediumRisk: []string{"송금", "이체", "금융사고", "검찰", "경찰", "금감원"},
		LowRisk:    []string{"급한", "긴급", "빨리", "지금 당장"},
	}
}

// LoadPatterns reads a pattern file, writing the defaults to path when the
// file does not exist yet. A file missing any tier falls back to defaults.
func LoadPatterns(path string, logger *zap.Logger) PatternSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultPatterns()
	if path == "" {
		return defaults
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("phishing pattern file not found, writing defaults", zap.String("path", path))
			if werr := fileutils.WriteJSONFileAtomic(path, defaults, true); werr != nil {
				logger.Warn("failed to write default phishing patterns", zap.Error(werr))
			}
		} else {
			logger.Warn("failed to read phishing pattern file, using defaults",
				zap.String("path", path), zap.Error(err))
		}
		return defaults
	}

	var p PatternSet
	if err := json.Unmarshal(b, &p); err != nil ||
		len(p.HighRisk) == 0 || len(p.MediumRisk) == 0 || len(p.LowRisk) == 0 {
		logger.Warn("phishing pattern file is incomplete, using defaults",
			zap.String("path", path), zap.Error(err))
		return defaults
	}
	return p
}
