package llm

import (
	"context"
	"fmt"

	"github.com/bokdori-ai/bokdori/phishing"
)

type phishingVerdict struct {
	Score       float64  `json:"score" jsonschema_description:"Phishing probability between 0 and 1"`
	RiskLevel   string   `json:"risk_level" jsonschema:"enum=safe,enum=low,enum=medium,enum=high"`
	Keywords    []string `json:"keywords" jsonschema_description:"Suspicious phrases found in the text"`
	Explanation string   `json:"explanation" jsonschema_description:"Short Korean explanation of the verdict"`
}

// AssessPhishing asks the model for a structured phishing verdict on text.
// It satisfies phishing.Judge.
func (c *Client) AssessPhishing(ctx context.Context, text string) (phishing.Assessment, error) {
	verdict, err := Structured[phishingVerdict](ctx, c,
		"PhishingVerdict", "Voice phishing risk verdict", phishingInstructions, text)
	if err != nil {
		return phishing.Assessment{}, fmt.Errorf("AssessPhishing: %w", err)
	}

	if verdict.Score < 0 {
		verdict.Score = 0
	}
	if verdict.Score > 1 {
		verdict.Score = 1
	}
	switch verdict.RiskLevel {
	case phishing.RiskSafe, phishing.RiskLow, phishing.RiskMedium, phishing.RiskHigh:
	default:
		verdict.RiskLevel = phishing.RiskUnknown
	}

	return phishing.Assessment{
		RiskLevel:   verdict.RiskLevel,
		Score:       verdict.Score,
		Keywords:    verdict.Keywords,
		Explanation: verdict.Explanation,
	}, nil
}
