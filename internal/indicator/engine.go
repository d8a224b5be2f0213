package indicator

import (
	"math"
	"sort"

	"stockcast/internal/domain"

	talib "github.com/markcheno/go-talib"
	"gonum.org/v1/gonum/stat"
)

// MinRows is the shortest history that produces a non-empty Set.
const MinRows = 20

const (
	SMA5          = "sma_5"
	SMA10         = "sma_10"
	SMA20         = "sma_20"
	SMA50         = "sma_50"
	EMA12         = "ema_12"
	EMA26         = "ema_26"
	MACD          = "macd"
	MACDSignal    = "macd_signal"
	MACDHistogram = "macd_histogram"
	RSI           = "rsi"
	BBUpper       = "bb_upper"
	BBMiddle      = "bb_middle"
	BBLower       = "bb_lower"
	BBWidth       = "bb_width"
	StochK        = "stoch_k"
	StochD        = "stoch_d"
	WilliamsR     = "williams_r"
	VolumeSMA     = "volume_sma"
	VolumeEMA     = "volume_ema"
	ATR           = "atr"
	PriceChange   = "price_change"
	PriceChange5  = "price_change_5d"
	Volatility    = "volatility"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	bollingerPeriod  = 20
	bollingerStdDevs = 2.0
	stochKPeriod     = 14
	stochDPeriod     = 3
	williamsPeriod   = 14
	volumeWindow     = 20
	atrPeriod        = 14
	volatilityWindow = 20
)

// Names lists every indicator Compute produces, in a stable order.
var Names = []string{
	SMA5, SMA10, SMA20, SMA50, EMA12, EMA26,
	MACD, MACDSignal, MACDHistogram, RSI,
	BBUpper, BBMiddle, BBLower, BBWidth,
	StochK, StochD, WilliamsR, VolumeSMA, VolumeEMA,
	ATR, PriceChange, PriceChange5, Volatility,
}

// Set maps indicator names to series aligned index-for-index with the input
// candles. NaN marks positions where the rolling window is not yet filled.
type Set map[string][]float64

// Empty reports whether the set was computed from too little history.
func (s Set) Empty() bool {
	return len(s) == 0
}

// At returns the value of an indicator at idx, or false when the name is
// unknown, idx is out of range or the value is unavailable.
func (s Set) At(name string, idx int) (float64, bool) {
	series, ok := s[name]
	if !ok || idx < 0 || idx >= len(series) {
		return 0, false
	}
	v := series[idx]
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// LastIndex is the index of the most recent row, or -1 for an empty set.
func (s Set) LastIndex() int {
	for _, series := range s {
		return len(series) - 1
	}
	return -1
}

// Snapshot collects the available values at idx.
func (s Set) Snapshot(idx int) map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, name := range Names {
		if v, ok := s.At(name, idx); ok {
			out[name] = v
		}
	}
	return out
}

// Compute derives the full indicator set. The input is copied and sorted by
// timestamp; fewer than MinRows rows yields an empty set.
func Compute(candles []domain.Candle) Set {
	if len(candles) < MinRows {
		return Set{}
	}
	rows := SortedCopy(candles)

	n := len(rows)
	closes := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	volumes := make([]float64, n)
	for i, c := range rows {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}

	set := Set{
		SMA5:  sma(closes, 5),
		SMA10: sma(closes, 10),
		SMA20: sma(closes, 20),
		SMA50: sma(closes, 50),
		EMA12: emaSeries(closes, macdFastPeriod),
		EMA26: emaSeries(closes, macdSlowPeriod),
		RSI:   rsiSeries(closes, rsiPeriod),
	}

	line, signal, hist := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	set[MACD] = line
	set[MACDSignal] = signal
	set[MACDHistogram] = hist

	upper, middle, lower, width := bollinger(closes, bollingerPeriod, bollingerStdDevs)
	set[BBUpper] = upper
	set[BBMiddle] = middle
	set[BBLower] = lower
	set[BBWidth] = width

	k, d := stochastic(highs, lows, closes, stochKPeriod, stochDPeriod)
	set[StochK] = k
	set[StochD] = d

	set[WilliamsR] = fromTalib(n, williamsPeriod-1, func() []float64 {
		return talib.WillR(highs, lows, closes, williamsPeriod)
	})
	set[ATR] = fromTalib(n, atrPeriod, func() []float64 {
		return talib.Atr(highs, lows, closes, atrPeriod)
	})
	set[PriceChange] = fromTalib(n, 1, func() []float64 { return talib.Rocp(closes, 1) })
	set[PriceChange5] = fromTalib(n, 5, func() []float64 { return talib.Rocp(closes, 5) })

	set[VolumeSMA] = volumeWeightedSMA(closes, volumes, volumeWindow)
	set[VolumeEMA] = volumeWeightedEMA(closes, volumes, volumeWindow)
	set[Volatility] = rollingStdDev(closes, volatilityWindow)

	return set
}

// SortedCopy returns the candles ordered by timestamp without touching the input.
func SortedCopy(candles []domain.Candle) []domain.Candle {
	rows := make([]domain.Candle, len(candles))
	copy(rows, candles)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})
	return rows
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// fromTalib runs a go-talib function and blanks its zero-filled lookback
// prefix. talib indexes past the end of short inputs, so it is only called
// when the series is longer than the lookback.
func fromTalib(n, lookback int, fn func() []float64) []float64 {
	if n <= lookback {
		return nanSeries(n)
	}
	out := fn()
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

func sma(values []float64, period int) []float64 {
	return fromTalib(len(values), period-1, func() []float64 {
		return talib.Sma(values, period)
	})
}

func bollinger(closes []float64, period int, devs float64) (upper, middle, lower, width []float64) {
	n := len(closes)
	if n < period {
		return nanSeries(n), nanSeries(n), nanSeries(n), nanSeries(n)
	}
	upper, middle, lower = talib.BBands(closes, period, devs, devs, talib.SMA)
	width = nanSeries(n)
	for i := 0; i < n; i++ {
		if i < period-1 {
			upper[i], middle[i], lower[i] = math.NaN(), math.NaN(), math.NaN()
			continue
		}
		if middle[i] != 0 {
			width[i] = (upper[i] - lower[i]) / middle[i] * 100
		}
	}
	return upper, middle, lower, width
}

// stochastic returns fast %K from index kPeriod-1 and its SMA %D from
// kPeriod+dPeriod-2. A flat window gives %K of 0.
func stochastic(highs, lows, closes []float64, kPeriod, dPeriod int) ([]float64, []float64) {
	n := len(closes)
	k, d := nanSeries(n), nanSeries(n)
	for i := kPeriod - 1; i < n; i++ {
		hh, ll := highs[i], lows[i]
		for j := i - kPeriod + 1; j < i; j++ {
			hh = math.Max(hh, highs[j])
			ll = math.Min(ll, lows[j])
		}
		k[i] = 0
		if hh != ll {
			k[i] = (closes[i] - ll) / (hh - ll) * 100
		}
	}

	lookback := kPeriod + dPeriod - 2
	if n <= lookback {
		return k, d
	}
	_, fastD := talib.StochF(highs, lows, closes, kPeriod, dPeriod, talib.SMA)
	copy(d[lookback:], fastD[lookback:])
	return k, d
}

// emaSeries is the recursive EMA seeded with the first observed value.
// Leading NaNs are skipped and the first period-1 observations are marked
// unavailable.
func emaSeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	alpha := 2.0 / (float64(period) + 1.0)
	seen := 0
	prev := math.NaN()
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if seen == 0 {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		seen++
		if seen >= period {
			out[i] = prev
		}
	}
	return out
}

func macdSeries(values []float64, fast, slow, signal int) (line, sig, hist []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	line = make([]float64, len(values))
	for i := range values {
		line[i] = fastEMA[i] - slowEMA[i]
	}
	sig = emaSeries(line, signal)
	hist = make([]float64, len(values))
	for i := range values {
		hist[i] = line[i] - sig[i]
	}
	return line, sig, hist
}

func rsiSeries(closes []float64, period int) []float64 {
	series := nanSeries(len(closes))
	if len(closes) <= period {
		return series
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func volumeWeightedSMA(closes, volumes []float64, window int) []float64 {
	out := nanSeries(len(closes))
	for i := window - 1; i < len(closes); i++ {
		var pv, vol float64
		for j := i - window + 1; j <= i; j++ {
			pv += closes[j] * volumes[j]
			vol += volumes[j]
		}
		if vol > 0 {
			out[i] = pv / vol
		}
	}
	return out
}

func volumeWeightedEMA(closes, volumes []float64, window int) []float64 {
	pv := make([]float64, len(closes))
	for i := range closes {
		pv[i] = closes[i] * volumes[i]
	}
	num := emaSeries(pv, window)
	den := emaSeries(volumes, window)
	out := nanSeries(len(closes))
	for i := range out {
		if !math.IsNaN(num[i]) && den[i] > 0 {
			out[i] = num[i] / den[i]
		}
	}
	return out
}

// rollingStdDev is the sample (n-1) standard deviation over a trailing window.
func rollingStdDev(values []float64, window int) []float64 {
	out := nanSeries(len(values))
	for i := window - 1; i < len(values); i++ {
		out[i] = stat.StdDev(values[i-window+1:i+1], nil)
	}
	return out
}
