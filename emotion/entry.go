package emotion

// Coarse sentiment buckets assigned per conversational turn.
const (
	CategoryPositive = "positive"
	CategoryNegative = "negative"
	CategoryNeutral  = "neutral"
)

// categoryOrder is the fixed preference order used to break dominant-emotion ties.
var categoryOrder = [...]string{CategoryPositive, CategoryNegative, CategoryNeutral}

// LogEntry is one classified conversational turn as it appears in a per-day
// emotion log file. Entries are produced by the classifier and read back by
// the trend monitor.
type LogEntry struct {
	Timestamp       string   `json:"timestamp"`
	EmotionCategory string   `json:"emotion_category"`
	Keywords        []string `json:"keywords,omitempty"`
}

// Category returns the entry's category, defaulting to neutral when the
// field is absent or unrecognized.
func (e LogEntry) Category() string {
	switch e.EmotionCategory {
	case CategoryPositive, CategoryNegative, CategoryNeutral:
		return e.EmotionCategory
	}
	return CategoryNeutral
}
