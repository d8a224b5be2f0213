package provider

import (
	"context"
	"hash/fnv"
	"math"
	"math/rand"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	syntheticDailyVol = 0.02
	syntheticOpenVol  = 0.005
	syntheticWickVol  = 0.01
	syntheticMinVol   = 1_000_000
	syntheticMaxVol   = 10_000_000
	defaultBasePrice  = 100.0
)

var basePrices = map[string]float64{
	"AAPL":  180,
	"MSFT":  350,
	"GOOGL": 140,
	"AMZN":  150,
	"TSLA":  250,
	"NVDA":  800,
	"META":  300,
	"NFLX":  400,
	"AMD":   120,
	"CRM":   200,
}

var syntheticDays = map[string]int{
	domain.Period5D: 5,
	domain.Period1M: 30,
	domain.Period3M: 90,
}

// BasePrice is the anchor the synthetic walk starts from.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[strings.ToUpper(symbol)]; ok {
		return p
	}
	return defaultBasePrice
}

// Synthetic generates a seeded random walk so the chain always has an answer.
// The same (symbol, period) always yields the same prices.
type Synthetic struct {
	now func() time.Time
}

func NewSynthetic() *Synthetic {
	return &Synthetic{now: time.Now}
}

func (s *Synthetic) Name() string { return NameSynthetic }

func (s *Synthetic) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	days, ok := syntheticDays[period]
	if !ok {
		days = 30
	}
	rng := seeded(strings.ToUpper(symbol) + "|" + period)
	end := s.now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)

	price := BasePrice(symbol)
	candles := make([]domain.Candle, 0, days+1)
	for i := 0; i <= days; i++ {
		price *= 1 + rng.NormFloat64()*syntheticDailyVol
		open := price * (1 + rng.NormFloat64()*syntheticOpenVol)
		high := price * (1 + math.Abs(rng.NormFloat64()*syntheticWickVol))
		low := price * (1 - math.Abs(rng.NormFloat64()*syntheticWickVol))
		high = math.Max(high, math.Max(open, price))
		low = math.Min(low, math.Min(open, price))
		volume := syntheticMinVol + rng.Intn(syntheticMaxVol-syntheticMinVol)

		candles = append(candles, domain.Candle{
			Timestamp: start.AddDate(0, 0, i),
			Open:      round2(open),
			High:      round2(high),
			Low:       round2(low),
			Close:     round2(price),
			Volume:    float64(volume),
		})
	}
	return domain.MarketSeries{
		Symbol:     symbol,
		Period:     period,
		Source:     NameSynthetic,
		Provenance: domain.ProvenanceSynthetic,
		Candles:    candles,
	}, nil
}

func (s *Synthetic) FetchInfo(ctx context.Context, symbol string) (domain.StockInfo, error) {
	sym := strings.ToUpper(symbol)
	rng := seeded(sym + "|info")
	base := BasePrice(sym)
	return domain.StockInfo{
		Symbol:        sym,
		Name:          sym + " Corporation",
		Sector:        "Technology",
		Industry:      "Software",
		MarketCap:     float64(100_000_000_000 + rng.Int63n(2_900_000_000_000)),
		PERatio:       round2(15 + rng.Float64()*20),
		DividendYield: round2(0.5 + rng.Float64()*2.5),
		High52Week:    round2(base * 1.3),
		Low52Week:     round2(base * 0.7),
		CurrentPrice:  round2(base),
		Currency:      "USD",
		Exchange:      "NASDAQ",
	}, nil
}

func seeded(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
