// Package report assembles the final forecast result and its plain-text
// summary.
package report

import (
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"
)

// Disclaimer is attached to every report and top list.
const Disclaimer = "This prediction is for research and education only and does not constitute investment advice. Invest at your own risk."

const (
	nearBand       = 0.02
	volumeAmplify  = 1.5
	volumeShrink   = 0.7
	summarySignals = 3

	neutralSummary = "No notable technical signals."
)

// Input is everything the report needs from a finished run.
type Input struct {
	RunID      string
	Symbol     string
	Timeframe  string
	Source     string
	Provenance domain.Provenance
	Close      float64
	Score      domain.SignalScore
	Levels     domain.Levels
	Features   domain.FeatureBundle
	Forecast   domain.Forecast
	Advice     domain.Advice
	Now        time.Time
}

func Build(in Input) domain.Report {
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	signals := in.Score.Signals
	if signals == nil {
		signals = []string{}
	}
	return domain.Report{
		RunID:          in.RunID,
		Symbol:         strings.ToUpper(in.Symbol),
		Timeframe:      in.Timeframe,
		Direction:      in.Forecast.Direction,
		Probability:    in.Forecast.Probability,
		PriceRange:     in.Advice.PriceRange,
		Confidence:     in.Forecast.Confidence,
		Rationale:      in.Forecast.Rationale,
		Action:         in.Advice.Action,
		RiskWarning:    in.Advice.RiskWarning,
		Disclaimer:     Disclaimer,
		Summary:        Summary(in.Score, in.Levels, in.Close, in.Features.VolumeRatio),
		CurrentPrice:   in.Close,
		SignalScore:    in.Score.Score,
		SignalStrength: in.Score.Strength,
		Signals:        signals,
		Support:        in.Levels.Support,
		Resistance:     in.Levels.Resistance,
		DataSource:     in.Source,
		Provenance:     in.Provenance,
		GeneratedAt:    now.UTC(),
	}
}

// Summary is deterministic for identical inputs.
func Summary(score domain.SignalScore, levels domain.Levels, price, volumeRatio float64) string {
	var parts []string
	if score.Strength != "" && score.Strength != domain.StrengthNeutral {
		parts = append(parts, fmt.Sprintf("Signal strength %s (score %g)", score.Strength, score.Score))
	}
	if n := len(score.Signals); n > 0 {
		if n > summarySignals {
			n = summarySignals
		}
		parts = append(parts, "Signals: "+strings.Join(score.Signals[:n], ", "))
	}
	if levels.Support > 0 && levels.Resistance > 0 {
		switch {
		case price < levels.Support*(1+nearBand):
			parts = append(parts, "Price is near support")
		case price > levels.Resistance*(1-nearBand):
			parts = append(parts, "Price is near resistance")
		default:
			parts = append(parts, "Price is mid-range between support and resistance")
		}
	}
	switch {
	case volumeRatio > volumeAmplify:
		parts = append(parts, "volume amplified")
	case volumeRatio > 0 && volumeRatio < volumeShrink:
		parts = append(parts, "volume shrinking")
	}
	if len(parts) == 0 {
		return neutralSummary
	}
	return strings.Join(parts, "; ") + "."
}
