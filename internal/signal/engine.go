package signal

import (
	"stockcast/internal/domain"
	"stockcast/internal/indicator"
)

const (
	SignalOversold       = "oversold"
	SignalOverbought     = "overbought"
	SignalBullishCross   = "bullish cross"
	SignalBearishCross   = "bearish cross"
	SignalShortAboveLong = "short-above-long MA"
	SignalShortBelowLong = "short-below-long MA"
	SignalBandNarrowing  = "band narrowing"
)

const (
	rsiOversold   = 30
	rsiOverbought = 70
)

// Engine scores the latest indicator values with a fixed rule table.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Score evaluates the rules at idx. It is a pure function of the set: rules
// whose inputs are unavailable at idx are skipped.
func (e *Engine) Score(set indicator.Set, idx int) domain.SignalScore {
	result := domain.SignalScore{Strength: domain.StrengthNeutral, Signals: []string{}}
	if set.Empty() || idx < 0 || idx > set.LastIndex() {
		return result
	}

	if rsi, ok := set.At(indicator.RSI, idx); ok {
		switch {
		case rsi < rsiOversold:
			add(&result, 2, SignalOversold)
		case rsi > rsiOverbought:
			add(&result, -2, SignalOverbought)
		}
	}

	line, okLine := set.At(indicator.MACD, idx)
	sig, okSig := set.At(indicator.MACDSignal, idx)
	if okLine && okSig {
		if line > sig {
			add(&result, 1, SignalBullishCross)
		} else {
			add(&result, -1, SignalBearishCross)
		}
	}

	short, okShort := set.At(indicator.SMA5, idx)
	long, okLong := set.At(indicator.SMA20, idx)
	if okShort && okLong {
		if short > long {
			add(&result, 1, SignalShortAboveLong)
		} else {
			add(&result, -1, SignalShortBelowLong)
		}
	}

	upper, okUpper := set.At(indicator.BBUpper, idx)
	lower, okLower := set.At(indicator.BBLower, idx)
	if okUpper && okLower && upper-lower > 0 {
		add(&result, 0.5, SignalBandNarrowing)
	}

	result.Strength = StrengthFor(result.Score)
	return result
}

// ScoreLatest scores the most recent row of the set.
func (e *Engine) ScoreLatest(set indicator.Set) domain.SignalScore {
	return e.Score(set, set.LastIndex())
}

// StrengthFor maps a summed score onto its categorical label.
func StrengthFor(score float64) domain.SignalStrength {
	switch {
	case score >= 3:
		return domain.StrengthStrongBullish
	case score >= 1:
		return domain.StrengthBullish
	case score <= -3:
		return domain.StrengthStrongBearish
	case score <= -1:
		return domain.StrengthBearish
	default:
		return domain.StrengthNeutral
	}
}

func add(s *domain.SignalScore, delta float64, name string) {
	s.Score += delta
	s.Signals = append(s.Signals, name)
}
