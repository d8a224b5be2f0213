package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"stockcast/internal/domain"
)

// DefaultTTL is how long a cached series stays fresh.
const DefaultTTL = time.Hour

var errEmptySeries = errors.New("refusing to cache an empty series")

// SeriesStore persists fetched series keyed by (symbol, period). Get only
// reports entries that are still fresh.
type SeriesStore interface {
	Get(ctx context.Context, symbol, period string) (domain.MarketSeries, bool, error)
	Put(ctx context.Context, series domain.MarketSeries) error
}

// Key hashes the (symbol, period) pair into the content-addressed entry name.
func Key(symbol, period string) string {
	sum := md5.Sum([]byte(symbol + "_" + period))
	return hex.EncodeToString(sum[:])
}

// record is the on-disk layout: one array per column, each row carrying the
// time it was written.
type record struct {
	Symbol     string            `json:"symbol"`
	Period     string            `json:"period"`
	Source     string            `json:"source"`
	Provenance domain.Provenance `json:"provenance"`
	WrittenAt  []int64           `json:"written_at"`
	Timestamp  []int64           `json:"timestamp"`
	Open       []float64         `json:"open"`
	High       []float64         `json:"high"`
	Low        []float64         `json:"low"`
	Close      []float64         `json:"close"`
	Volume     []float64         `json:"volume"`
}

func encodeRecord(series domain.MarketSeries, writtenAt time.Time) ([]byte, error) {
	n := len(series.Candles)
	if n == 0 {
		return nil, errEmptySeries
	}
	rec := record{
		Symbol:     series.Symbol,
		Period:     series.Period,
		Source:     series.Source,
		Provenance: series.Provenance,
		WrittenAt:  make([]int64, n),
		Timestamp:  make([]int64, n),
		Open:       make([]float64, n),
		High:       make([]float64, n),
		Low:        make([]float64, n),
		Close:      make([]float64, n),
		Volume:     make([]float64, n),
	}
	stamp := writtenAt.UTC().UnixMilli()
	for i, c := range series.Candles {
		rec.WrittenAt[i] = stamp
		rec.Timestamp[i] = c.Timestamp.UTC().UnixMilli()
		rec.Open[i] = c.Open
		rec.High[i] = c.High
		rec.Low[i] = c.Low
		rec.Close[i] = c.Close
		rec.Volume[i] = c.Volume
	}
	return json.Marshal(rec)
}

func decodeRecord(payload []byte) (domain.MarketSeries, time.Time, error) {
	var rec record
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.MarketSeries{}, time.Time{}, fmt.Errorf("decode cache record: %w", err)
	}
	n := len(rec.Timestamp)
	if n == 0 || len(rec.WrittenAt) != n || len(rec.Open) != n || len(rec.High) != n ||
		len(rec.Low) != n || len(rec.Close) != n || len(rec.Volume) != n {
		return domain.MarketSeries{}, time.Time{}, errors.New("decode cache record: ragged columns")
	}

	series := domain.MarketSeries{
		Symbol:     rec.Symbol,
		Period:     rec.Period,
		Source:     rec.Source,
		Provenance: rec.Provenance,
		Candles:    make([]domain.Candle, n),
	}
	for i := 0; i < n; i++ {
		series.Candles[i] = domain.Candle{
			Timestamp: time.UnixMilli(rec.Timestamp[i]).UTC(),
			Open:      rec.Open[i],
			High:      rec.High[i],
			Low:       rec.Low[i],
			Close:     rec.Close[i],
			Volume:    rec.Volume[i],
		}
	}
	return series, time.UnixMilli(rec.WrittenAt[0]).UTC(), nil
}

func isFresh(writtenAt, now time.Time, ttl time.Duration) bool {
	return now.Sub(writtenAt) < ttl
}
