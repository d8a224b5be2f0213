package signal

import (
	"math"
	"reflect"
	"testing"

	"stockcast/internal/domain"
	"stockcast/internal/indicator"
)

func TestScoreStrongBullishScenario(t *testing.T) {
	set := indicator.Set{
		indicator.RSI:        {25},
		indicator.MACD:       {1.2},
		indicator.MACDSignal: {0.4},
		indicator.SMA5:       {105},
		indicator.SMA20:      {100},
	}

	got := NewEngine().Score(set, 0)
	if got.Score != 4 {
		t.Fatalf("expected score 4, got %.1f", got.Score)
	}
	if got.Strength != domain.StrengthStrongBullish {
		t.Fatalf("expected strong_bullish, got %s", got.Strength)
	}
	want := []string{SignalOversold, SignalBullishCross, SignalShortAboveLong}
	if !reflect.DeepEqual(got.Signals, want) {
		t.Fatalf("expected signals %v, got %v", want, got.Signals)
	}
}

func TestScoreBearishRules(t *testing.T) {
	set := indicator.Set{
		indicator.RSI:        {80},
		indicator.MACD:       {0.1},
		indicator.MACDSignal: {0.1},
		indicator.SMA5:       {99},
		indicator.SMA20:      {100},
		indicator.BBUpper:    {110},
		indicator.BBLower:    {90},
	}

	got := NewEngine().Score(set, 0)
	if got.Score != -3.5 {
		t.Fatalf("expected score -3.5, got %.1f", got.Score)
	}
	if got.Strength != domain.StrengthStrongBearish {
		t.Fatalf("expected strong_bearish, got %s", got.Strength)
	}
	want := []string{SignalOverbought, SignalBearishCross, SignalShortBelowLong, SignalBandNarrowing}
	if !reflect.DeepEqual(got.Signals, want) {
		t.Fatalf("expected signals %v, got %v", want, got.Signals)
	}
}

func TestScoreSkipsUnavailableInputs(t *testing.T) {
	nan := math.NaN()
	set := indicator.Set{
		indicator.RSI:        {nan, 50},
		indicator.MACD:       {nan, 2},
		indicator.MACDSignal: {nan, 1},
		indicator.SMA5:       {nan, nan},
		indicator.SMA20:      {nan, nan},
	}

	first := NewEngine().Score(set, 0)
	if first.Score != 0 || len(first.Signals) != 0 || first.Strength != domain.StrengthNeutral {
		t.Fatalf("expected neutral empty score for unavailable row, got %+v", first)
	}

	second := NewEngine().Score(set, 1)
	if second.Score != 1 || second.Strength != domain.StrengthBullish {
		t.Fatalf("expected bullish score 1, got %+v", second)
	}
}

func TestScoreEmptyAndOutOfRange(t *testing.T) {
	e := NewEngine()
	if got := e.Score(indicator.Set{}, 0); got.Strength != domain.StrengthNeutral || got.Signals == nil {
		t.Fatalf("unexpected result for empty set: %+v", got)
	}
	set := indicator.Set{indicator.RSI: {20}}
	if got := e.Score(set, 3); got.Score != 0 {
		t.Fatalf("expected out-of-range index to score 0, got %+v", got)
	}
}

func TestScoreDeterministic(t *testing.T) {
	candles := make([]domain.Candle, 0, 60)
	price := 50.0
	for i := 0; i < 60; i++ {
		price += float64((i%5)-2) * 0.7
		candles = append(candles, domain.Candle{Close: price, High: price + 1, Low: price - 1, Volume: 1000})
	}
	set := indicator.Compute(candles)

	e := NewEngine()
	a := e.ScoreLatest(set)
	b := e.ScoreLatest(set)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("expected identical output, got %+v and %+v", a, b)
	}
}

func TestStrengthThresholds(t *testing.T) {
	cases := map[float64]domain.SignalStrength{
		3:    domain.StrengthStrongBullish,
		4.5:  domain.StrengthStrongBullish,
		2.5:  domain.StrengthBullish,
		1:    domain.StrengthBullish,
		0.5:  domain.StrengthNeutral,
		0:    domain.StrengthNeutral,
		-0.5: domain.StrengthNeutral,
		-1:   domain.StrengthBearish,
		-2.5: domain.StrengthBearish,
		-3:   domain.StrengthStrongBearish,
	}
	for score, want := range cases {
		if got := StrengthFor(score); got != want {
			t.Fatalf("score %.1f: expected %s, got %s", score, want, got)
		}
	}
}
