// Package phishing flags likely voice phishing attempts in user messages.
// A keyword tier scan runs on every message and an optional LLM judge gives
// a second opinion when the scan finds enough signal.
package phishing

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Risk levels, ordered from harmless to actionable.
const (
	RiskUnknown = "unknown"
	RiskSafe    = "safe"
	RiskLow     = "low"
	RiskMedium  = "medium"
	RiskHigh    = "high"
)

// Detection methods recorded on an Assessment.
const (
	MethodPattern  = "pattern"
	MethodCombined = "combined"
)

// DefaultThreshold is the combined score at which a message is treated as
// confirmed phishing.
const DefaultThreshold = 0.7

// Assessment is the outcome of scanning one message.
type Assessment struct {
	IsPhishing  bool     `json:"is_phishing"`
	RiskLevel   string   `json:"risk_level"`
	Score       float64  `json:"score"`
	Keywords    []string `json:"keywords,omitempty"`
	Explanation string   `json:"explanation"`
	Method      string   `json:"method"`
}

// Judge is an optional model-backed second opinion on a message.
type Judge interface {
	AssessPhishing(ctx context.Context, text string) (Assessment, error)
}

// Detector scans messages against tiered keyword patterns and combines the
// result with a Judge verdict when one is configured.
type Detector struct {
	patterns  PatternSet
	threshold float64
	judge     Judge
	log       *zap.Logger
}

func NewDetector(patterns PatternSet, threshold float64, judge Judge, logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if len(patterns.HighRisk) == 0 && len(patterns.MediumRisk) == 0 && len(patterns.LowRisk) == 0 {
		patterns = DefaultPatterns()
	}
	return &Detector{
		patterns:  patterns,
		threshold: threshold,
		judge:     judge,
		log:       logger,
	}
}

// DetectWithPatterns scans text against the keyword tiers. Each high risk
// match adds 0.5, medium 0.3 and low 0.1, capped at 1.0.
func (d *Detector) DetectWithPatterns(text string) Assessment {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 5 {
		return Assessment{
			RiskLevel:   RiskUnknown,
			Explanation: "텍스트가 너무 짧습니다.",
			Method:      MethodPattern,
		}
	}

	normalized := strings.ToLower(text)
	var keywords []string
	matchTier := func(tier []string) int {
		n := 0
		for _, kw := range tier {
			if kw != "" && strings.Contains(normalized, strings.ToLower(kw)) {
				keywords = append(keywords, kw)
				n++
			}
		}
		return n
	}

	high := matchTier(d.patterns.HighRisk)
	medium := matchTier(d.patterns.MediumRisk)
	low := matchTier(d.patterns.LowRisk)

	score := float64(high)*0.5 + float64(medium)*0.3 + float64(low)*0.1
	if score > 1.0 {
		score = 1.0
	}

	var level, explanation string
	switch {
	case score >= 0.7:
		level = RiskHigh
		explanation = "다수의 고위험 보이스피싱 징후가 감지되었습니다. 주의하세요!"
	case score >= 0.4:
		level = RiskMedium
		explanation = "일부 보이스피싱 관련 용어가 감지되었습니다. 의심스러운 부분이 있습니다."
	case score > 0:
		level = RiskLow
		explanation = "약간의 의심스러운 표현이 포함되어 있습니다. 주의가 필요할 수 있습니다."
	default:
		level = RiskSafe
		explanation = "보이스피싱 징후가 감지되지 않았습니다."
	}

	return Assessment{
		RiskLevel:   level,
		Score:       score,
		Keywords:    keywords,
		Explanation: explanation,
		Method:      MethodPattern,
	}
}

// Detect runs the pattern scan and, when the scan scores at least 0.2 and a
// judge is configured, folds in the judge's verdict. The combined score is
// the max of the two, and IsPhishing is decided against the configured
// threshold. Without a judge the pattern score alone is judged.
func (d *Detector) Detect(ctx context.Context, text string) Assessment {
	pattern := d.DetectWithPatterns(text)

	if pattern.Score < 0.2 {
		return pattern
	}

	verdict := pattern
	method := MethodPattern
	if d.judge != nil {
		method = MethodCombined
		v, err := d.judge.AssessPhishing(ctx, text)
		if err != nil {
			d.log.Error("phishing judge failed, falling back to pattern scan", zap.Error(err))
		} else {
			verdict = v
		}
	}

	combined := pattern.Score
	if verdict.Score > combined {
		combined = verdict.Score
	}

	result := Assessment{
		Score:    combined,
		Keywords: mergeKeywords(pattern.Keywords, verdict.Keywords),
		Method:   method,
	}

	switch {
	case combined >= d.threshold:
		result.RiskLevel = RiskHigh
		result.IsPhishing = true
	case combined >= d.threshold*0.7:
		result.RiskLevel = RiskMedium
		result.IsPhishing = true
	case combined >= d.threshold*0.3:
		result.RiskLevel = RiskLow
	default:
		result.RiskLevel = RiskSafe
	}

	result.Explanation = verdict.Explanation
	if result.Explanation == "" {
		result.Explanation = pattern.Explanation
	}
	return result
}

func mergeKeywords(groups ...[]string) []string {
	var merged []string
	seen := make(map[string]bool)
	for _, group := range groups {
		for _, kw := range group {
			if kw == "" || seen[kw] {
				continue
			}
			seen[kw] = true
			merged = append(merged, kw)
		}
	}
	return merged
}
