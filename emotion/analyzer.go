package emotion

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/bokdori-ai/bokdori/fileutils"
)

// PatternSet is the keyword configuration driving text emotion scoring.
type PatternSet struct {
	Emotions           map[string][]string `json:"emotions"`
	IntensityModifiers IntensityModifiers  `json:"intensity_modifiers"`
	NegationWords      []string            `json:"negation_words"`
}

type IntensityModifiers struct {
	High []string `json:"high"`
	Low  []string `json:"low"`
}

// DefaultPatterns returns the built-in Korean emotion keyword set used when
// no pattern file exists.
func DefaultPatterns() PatternSet {
	return PatternSet{
		Emotions: map[string][]string{
			"기쁨": {"좋아", "기쁘", "행복", "웃", "신나", "즐겁", "재밌"},
			"슬픔": {"슬퍼", "우울", "눈물", "울", "속상", "마음이 아프", "고통스럽"},
			"분노": {"화나", "짜증", "열받", "분노", "화가 나", "짜증나", "미치겠"},
			"불안": {"걱정", "불안", "초조", "두렵", "무섭", "떨려", "긴장"},
			"우울": {"우울", "의미 없", "공허", "허무", "살기 싫", "절망", "희망이 없"},
			"평온": {"평온", "고요", "침착", "차분", "편안", "안정"},
		},
		IntensityModifiers: IntensityModifiers{
			High: []string{"매우", "정말", "너무", "엄청", "굉장히"},
			Low:  []string{"조금", "약간", "살짝", "다소"},
		},
		NegationWords: []string{"아니", "않", "없", "말", "못"},
	}
}

// defaultEmotionCategories maps each named emotion to its coarse category.
var defaultEmotionCategories = map[string]string{
	"기쁨": CategoryPositive, "행복": CategoryPositive, "만족": CategoryPositive,
	"흥미": CategoryPositive, "기대": CategoryPositive, "사랑": CategoryPositive,
	"슬픔": CategoryNegative, "분노": CategoryNegative, "불안": CategoryNegative,
	"공포": CategoryNegative, "우울": CategoryNegative, "절망": CategoryNegative,
	"실망": CategoryNegative,
	"평온": CategoryNeutral, "무관심": CategoryNeutral, "집중": CategoryNeutral,
	"고요": CategoryNeutral,
}

// Analysis is the per-text classification result.
type Analysis struct {
	DominantEmotion string             `json:"dominant_emotion"`
	EmotionCategory string             `json:"emotion_category"`
	Scores          map[string]float64 `json:"emotion_scores"`
	Confidence      float64            `json:"confidence"`
	Keywords        []string           `json:"keywords,omitempty"`
}

// ConversationAnalysis summarizes the user's side of a whole conversation.
type ConversationAnalysis struct {
	OverallEmotion string             `json:"overall_emotion"`
	Trend          string             `json:"emotion_trend"` // improving | worsening | stable
	Distribution   map[string]float64 `json:"emotion_distribution"`
	PerMessage     []Analysis         `json:"emotion_scores_by_message"`
}

// Analyzer scores text against the keyword pattern set. Scoring considers a
// small context window around each match for intensity and negation cues.
type Analyzer struct {
	patterns PatternSet
	log      *zap.Logger
}

func NewAnalyzer(patterns PatternSet, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(patterns.Emotions) == 0 {
		patterns = DefaultPatterns()
	}
	return &Analyzer{patterns: patterns, log: logger}
}

// LoadPatterns reads a pattern file, falling back to the defaults when the
// file is missing (the defaults are then written there) or corrupt.
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
			logger.Warn("emotion pattern file not found, writing defaults", zap.String("path", path))
			if werr := fileutils.WriteJSONFileAtomic(path, defaults, true); werr != nil {
				logger.Warn("failed to write default emotion patterns", zap.Error(werr))
			}
		} else {
			logger.Warn("failed to read emotion pattern file, using defaults",
				zap.String("path", path), zap.Error(err))
		}
		return defaults
	}

	var p PatternSet
	if err := json.Unmarshal(b, &p); err != nil || len(p.Emotions) == 0 {
		logger.Warn("emotion pattern file is invalid, using defaults",
			zap.String("path", path), zap.Error(err))
		return defaults
	}
	return p
}

const contextWindowRunes = 20

// AnalyzeText scores a single utterance. Texts shorter than 3 runes report
// the unknown emotion with zero confidence.
func (a *Analyzer) AnalyzeText(text string) Analysis {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 3 {
		return Analysis{
			DominantEmotion: "unknown",
			EmotionCategory: "unknown",
			Scores:          map[string]float64{},
		}
	}

	runes := []rune(strings.ToLower(text))

	raw := make(map[string]float64, len(a.patterns.Emotions))
	for emotionName := range a.patterns.Emotions {
		raw[emotionName] = 0
	}

	for emotionName, keywords := range a.patterns.Emotions {
		for _, kw := range keywords {
			kwRunes := []rune(strings.ToLower(kw))
			if len(kwRunes) == 0 {
				continue
			}
			for _, pos := range runeIndexAll(runes, kwRunes) {
				score := 1.0

				ctxStart := max(0, pos-contextWindowRunes)
				ctxEnd := min(len(runes), pos+len(kwRunes)+contextWindowRunes)
				ctx := string(runes[ctxStart:ctxEnd])

				if containsAny(ctx, a.patterns.IntensityModifiers.High) {
					score *= 1.5
				} else if containsAny(ctx, a.patterns.IntensityModifiers.Low) {
					score *= 0.7
				}
				if containsAny(ctx, a.patterns.NegationWords) {
					// Negated mention: invert and dampen.
					score *= -0.5
				}

				raw[emotionName] += score
			}
		}
	}

	var total float64
	for _, s := range raw {
		if s < 0 {
			total -= s
		} else {
			total += s
		}
	}

	normalized := make(map[string]float64, len(raw))
	dominant := CategoryNeutral
	dominantScore := 0.0
	if total > 0 {
		for name, s := range raw {
			if s < 0 {
				s = -s
			}
			normalized[name] = s / total
		}
		// Deterministic pick over the map.
		names := make([]string, 0, len(normalized))
		for name := range normalized {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if normalized[name] > dominantScore {
				dominant = name
				dominantScore = normalized[name]
			}
		}
	} else {
		for name := range raw {
			normalized[name] = 0
		}
	}

	category := defaultEmotionCategories[dominant]
	if category == "" {
		category = CategoryNeutral
	}

	confidence := dominantScore
	scores := make([]float64, 0, len(normalized))
	for _, s := range normalized {
		scores = append(scores, s)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))
	if len(scores) > 1 && scores[1] > 0 && scores[0] > 0 {
		confidence = (scores[0] - scores[1]) / scores[0]
	}
	if confidence > 1 {
		confidence = 1
	}

	return Analysis{
		DominantEmotion: dominant,
		EmotionCategory: category,
		Scores:          normalized,
		Confidence:      confidence,
		Keywords:        a.matchedKeywords(string(runes), 5),
	}
}

// ClassifyTurn converts an analysis of one user turn into the log entry
// shape consumed by the trend monitor.
func (a *Analyzer) ClassifyTurn(text string, now time.Time) LogEntry {
	analysis := a.AnalyzeText(text)
	category := analysis.EmotionCategory
	if category != CategoryPositive && category != CategoryNegative {
		category = CategoryNeutral
	}
	return LogEntry{
		Timestamp:       now.Format(time.RFC3339),
		EmotionCategory: category,
		Keywords:        analysis.Keywords,
	}
}

// AnalyzeConversation analyzes the user turns of an alternating
// user/assistant history: overall distribution, dominant category, and a
// coarse trend from a least-squares slope over (+1, 0, -1) per message.
func (a *Analyzer) AnalyzeConversation(history []string) ConversationAnalysis {
	var userTurns []string
	for i := 0; i < len(history); i += 2 {
		userTurns = append(userTurns, history[i])
	}
	if len(userTurns) == 0 {
		return ConversationAnalysis{
			OverallEmotion: CategoryNeutral,
			Trend:          "stable",
			Distribution:   map[string]float64{CategoryNeutral: 1.0},
		}
	}

	perMessage := make([]Analysis, 0, len(userTurns))
	for _, msg := range userTurns {
		perMessage = append(perMessage, a.AnalyzeText(msg))
	}

	distribution := make(map[string]float64)
	for _, r := range perMessage {
		distribution[r.EmotionCategory]++
	}
	n := float64(len(perMessage))
	for cat := range distribution {
		distribution[cat] /= n
	}

	overall := CategoryNeutral
	bestShare := -1.0
	cats := make([]string, 0, len(distribution))
	for cat := range distribution {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		if distribution[cat] > bestShare {
			overall = cat
			bestShare = distribution[cat]
		}
	}

	return ConversationAnalysis{
		OverallEmotion: overall,
		Trend:          emotionTrend(perMessage),
		Distribution:   distribution,
		PerMessage:     perMessage,
	}
}

// emotionTrend fits a line over per-message sentiment values and maps the
// slope to improving/worsening/stable with a ±0.1 cutoff. Short
// conversations are treated as stable.
func emotionTrend(perMessage []Analysis) string {
	if len(perMessage) <= 2 {
		return "stable"
	}

	values := make([]float64, len(perMessage))
	for i, r := range perMessage {
		switch r.EmotionCategory {
		case CategoryPositive:
			values[i] = 1
		case CategoryNegative:
			values[i] = -1
		}
	}

	// Least-squares slope with x = 0..n-1.
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return "stable"
	}
	slope := (n*sumXY - sumX*sumY) / denom

	switch {
	case slope > 0.1:
		return "improving"
	case slope < -0.1:
		return "worsening"
	default:
		return "stable"
	}
}

func (a *Analyzer) matchedKeywords(lowerText string, max int) []string {
	var out []string
	seen := make(map[string]struct{})

	names := make([]string, 0, len(a.patterns.Emotions))
	for name := range a.patterns.Emotions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, kw := range a.patterns.Emotions[name] {
			lkw := strings.ToLower(kw)
			if lkw == "" {
				continue
			}
			if _, dup := seen[lkw]; dup {
				continue
			}
			if strings.Contains(lowerText, lkw) {
				seen[lkw] = struct{}{}
				out = append(out, kw)
				if len(out) >= max {
					return out
				}
			}
		}
	}
	return out
}

func runeIndexAll(haystack, needle []rune) []int {
	var positions []int
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			positions = append(positions, i)
		}
	}
	return positions
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
