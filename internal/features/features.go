package features

import (
	"math"

	"stockcast/internal/domain"
	"stockcast/internal/indicator"
)

const defaultRSI = 50

// Extractor flattens a series and its indicators into the bundle handed to
// the analysis backend.
type Extractor struct {
	anomaly AnomalyOptions
}

func NewExtractor(opts AnomalyOptions) *Extractor {
	return &Extractor{anomaly: opts}
}

// Extract reads everything from the latest row. Fields that need more history
// than the series has are left at their neutral value.
func (e *Extractor) Extract(series domain.MarketSeries, set indicator.Set, score domain.SignalScore, levels domain.Levels) domain.FeatureBundle {
	candles := series.Candles
	bundle := domain.FeatureBundle{
		RSI:            defaultRSI,
		SMA5To20Ratio:  1,
		PriceToSMA20:   1,
		VolumeRatio:    1,
		SignalScore:    score.Score,
		SignalStrength: score.Strength,
		Signals:        append([]string(nil), score.Signals...),
		Support:        levels.Support,
		Resistance:     levels.Resistance,
		Hour:           12,
	}
	if bundle.SignalStrength == "" {
		bundle.SignalStrength = domain.StrengthNeutral
	}
	if len(candles) == 0 {
		return bundle
	}

	n := len(candles)
	last := candles[n-1]
	bundle.CurrentPrice = last.Close
	bundle.PriceChange1D = change(candles, 1)
	bundle.PriceChange5D = change(candles, 5)
	bundle.PriceChange20D = change(candles, 20)
	bundle.VolumeRatio = volumeRatio(candles)
	bundle.VolumeTrend = volumeTrend(candles)
	bundle.DayOfWeek = (int(last.Timestamp.Weekday()) + 6) % 7
	bundle.Hour = last.Timestamp.Hour()

	idx := set.LastIndex()
	if v, ok := set.At(indicator.Volatility, idx); ok {
		bundle.Volatility20D = v
	}
	if v, ok := set.At(indicator.ATR, idx); ok {
		bundle.ATR = v
	}
	if v, ok := set.At(indicator.RSI, idx); ok {
		bundle.RSI = v
	}
	line, okLine := set.At(indicator.MACD, idx)
	sig, okSig := set.At(indicator.MACDSignal, idx)
	if okLine && okSig {
		bundle.MACDSignal = -1
		if line > sig {
			bundle.MACDSignal = 1
		}
	}
	sma20, ok20 := set.At(indicator.SMA20, idx)
	if ok20 && sma20 != 0 {
		if sma5, ok5 := set.At(indicator.SMA5, idx); ok5 {
			bundle.SMA5To20Ratio = sma5 / sma20
		}
		bundle.PriceToSMA20 = last.Close / sma20
	}

	bundle.AnomalyScore = AnomalyScore(anomalyRows(candles), e.anomaly)
	return bundle
}

func change(candles []domain.Candle, periods int) float64 {
	n := len(candles)
	if n <= periods {
		return 0
	}
	prev := candles[n-1-periods].Close
	if prev == 0 {
		return 0
	}
	return candles[n-1].Close/prev - 1
}

func volumeRatio(candles []domain.Candle) float64 {
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	mean := sum / float64(len(candles))
	if mean <= 0 {
		return 1
	}
	return candles[len(candles)-1].Volume / mean
}

// volumeTrend compares the last five sessions' mean volume with the five before.
func volumeTrend(candles []domain.Candle) float64 {
	n := len(candles)
	if n < 10 {
		return 0
	}
	recent := meanVolume(candles[n-5:])
	previous := meanVolume(candles[n-10 : n-5])
	if previous == 0 {
		return 0
	}
	return recent/previous - 1
}

func meanVolume(candles []domain.Candle) float64 {
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}

// anomalyRows builds one [return, log volume change, range/close] vector per
// row after the first.
func anomalyRows(candles []domain.Candle) [][]float64 {
	if len(candles) < 2 {
		return nil
	}
	rows := make([][]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev, cur := candles[i-1], candles[i]
		var ret, volChange, spread float64
		if prev.Close != 0 {
			ret = cur.Close/prev.Close - 1
		}
		if prev.Volume > 0 && cur.Volume > 0 {
			volChange = math.Log(cur.Volume / prev.Volume)
		}
		if cur.Close != 0 {
			spread = (cur.High - cur.Low) / cur.Close
		}
		rows = append(rows, []float64{ret, volChange, spread})
	}
	return rows
}
