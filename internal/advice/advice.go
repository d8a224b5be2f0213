// Package advice turns a forecast and the latest close into a price range and
// a suggested action.
package advice

import (
	"math"
	"strings"

	"stockcast/internal/domain"

	"github.com/shopspring/decimal"
)

// BaseWarning opens every risk warning.
const BaseWarning = "This forecast is for research and education only and is not investment advice. Markets carry risk."

const (
	ActionObserve  = "hold/observe"
	ActionBuy      = "consider buying with a stop-loss"
	ActionReduce   = "consider reducing exposure, avoid chasing"
	ActionMaintain = "maintain current position"

	minActionProbability = 55
	strongProbability    = 65
	lowProbability       = 60
	maxRiskFactors       = 3
)

// Synthesize derives the advice record for one forecast. It never fails.
func Synthesize(forecast domain.Forecast, close float64) domain.Advice {
	return domain.Advice{
		PriceRange:  PriceRange(forecast.Direction, forecast.PriceChangePercent, close),
		Action:      Action(forecast),
		RiskWarning: RiskWarning(forecast),
	}
}

// PriceRange scales the expected change around close. The bounds are ordered
// so Min never exceeds Max, whatever sign the change has.
func PriceRange(dir domain.Direction, changePercent, close float64) domain.PriceRange {
	if !finite(changePercent) {
		changePercent = 0
	}
	if !finite(close) {
		return domain.PriceRange{}
	}
	c := changePercent / 100
	var lo, hi float64
	switch dir {
	case domain.DirectionUp:
		lo, hi = 1+0.5*c, 1+1.5*c
	case domain.DirectionDown:
		lo, hi = 1+1.5*c, 1+0.5*c
	default:
		lo, hi = 1+0.8*c, 1+1.2*c
	}
	a, b := round2(close*lo), round2(close*hi)
	if a > b {
		a, b = b, a
	}
	return domain.PriceRange{Min: a, Max: b}
}

func Action(f domain.Forecast) string {
	switch {
	case f.Confidence == domain.ConfidenceLow || f.Probability < minActionProbability:
		return ActionObserve
	case f.Direction == domain.DirectionUp && f.Probability >= strongProbability:
		return ActionBuy
	case f.Direction == domain.DirectionDown && f.Probability >= strongProbability:
		return ActionReduce
	default:
		return ActionMaintain
	}
}

func RiskWarning(f domain.Forecast) string {
	var b strings.Builder
	b.WriteString(BaseWarning)
	if f.Probability < lowProbability {
		b.WriteString(" Forecast probability is low, act with caution.")
	}
	switch f.Direction {
	case domain.DirectionDown:
		b.WriteString(" A downtrend is expected, keep risk controls in place.")
	case domain.DirectionUp:
		b.WriteString(" An uptrend is expected, but watch for changing conditions.")
	}
	factors := f.RiskFactors
	if len(factors) > maxRiskFactors {
		factors = factors[:maxRiskFactors]
	}
	if len(factors) > 0 {
		b.WriteString(" Key risk factors: ")
		b.WriteString(strings.Join(factors, ", "))
		b.WriteString(".")
	}
	return b.String()
}

func round2(v float64) float64 {
	if !finite(v) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
