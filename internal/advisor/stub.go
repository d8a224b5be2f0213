package advisor

import (
	"context"
	"encoding/json"
	"strings"

	"stockcast/internal/domain"
)

var stubRiskFactors = []string{
	"Elevated market volatility",
	"Technical indicators lag price action",
	"Fundamentals are not considered",
}

var stubRationales = map[domain.Direction]string{
	domain.DirectionUp:      "Indicators point to an uptrend: momentum has turned up and the short average leads the long one.",
	domain.DirectionDown:    "Indicators point to downside pressure: momentum is fading and the short average trails the long one.",
	domain.DirectionNeutral: "Indicators are mixed with no clear direction; the price is likely to range until a breakout.",
}

// Stub answers offline. Its output depends only on the prompt text, seeded
// by the symbol it names.
type Stub struct{}

func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return BackendStub }

func (s *Stub) Complete(ctx context.Context, system, user string) (string, error) {
	if strings.Contains(user, topPromptMarker) {
		recs := make([]domain.Recommendation, 0, TopSize)
		for _, l := range TopUniverse {
			recs = append(recs, DefaultRecommendation(l))
		}
		out, err := json.Marshal(recs)
		return string(out), err
	}

	symbol := promptField(user, promptSymbolKey)
	strength := promptField(user, promptStrengthKey)
	rng := seededRand(symbol)

	f := domain.Forecast{
		Confidence:  domain.ConfidenceMedium,
		RiskFactors: stubRiskFactors,
	}
	switch {
	case strings.Contains(strength, "bullish"):
		f.Direction = domain.DirectionUp
		f.Probability = between(rng, 60, 85)
		f.PriceChangePercent = between(rng, 2, 8)
	case strings.Contains(strength, "bearish"):
		f.Direction = domain.DirectionDown
		f.Probability = between(rng, 60, 85)
		f.PriceChangePercent = between(rng, -8, -2)
	default:
		f.Direction = domain.DirectionNeutral
		f.Probability = between(rng, 45, 55)
		f.PriceChangePercent = between(rng, -2, 2)
	}
	f.Probability = round1(f.Probability)
	f.PriceChangePercent = round1(f.PriceChangePercent)
	f.Rationale = stubRationales[f.Direction]

	out, err := json.Marshal(f)
	return string(out), err
}

// promptField reads the value of a "Key: value" line.
func promptField(prompt, key string) string {
	for _, line := range strings.Split(prompt, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, key+":"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
