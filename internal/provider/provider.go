package provider

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"stockcast/internal/domain"
)

const (
	NameYahoo        = "yahoo"
	NameAlphaVantage = "alpha_vantage"
	NameIEXCloud     = "iex_cloud"
	NamePolygon      = "polygon_io"
	NameArchive      = "archive"
	NameSynthetic    = "synthetic"
)

// ErrNoData is returned when an upstream answers but has no usable rows.
var ErrNoData = errors.New("no data returned")

// Provider is one source of OHLCV history.
type Provider interface {
	Name() string
	FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error)
}

// InfoProvider is implemented by sources that also describe the ticker.
type InfoProvider interface {
	FetchInfo(ctx context.Context, symbol string) (domain.StockInfo, error)
}

// Descriptor places a provider in the fallback chain. Lower priority runs first.
type Descriptor struct {
	Name     string
	Priority int
	Provider Provider
}

// Keys holds vendor credentials. Vendors without a key are left out of the chain.
type Keys struct {
	AlphaVantage string
	IEXCloud     string
	Polygon      string
}

// Chain builds the static provider list. The archive is included only when
// non-nil and the synthetic generator is always last.
func Chain(keys Keys, archive SeriesArchive, opts ...Option) []Descriptor {
	providers := []Provider{NewYahoo(opts...)}
	if keys.AlphaVantage != "" {
		providers = append(providers, NewAlphaVantage(keys.AlphaVantage, opts...))
	}
	if keys.IEXCloud != "" {
		providers = append(providers, NewIEXCloud(keys.IEXCloud, opts...))
	}
	if keys.Polygon != "" {
		providers = append(providers, NewPolygon(keys.Polygon, opts...))
	}
	if archive != nil {
		providers = append(providers, NewArchive(archive))
	}
	providers = append(providers, NewSynthetic())

	descriptors := make([]Descriptor, len(providers))
	for i, p := range providers {
		descriptors[i] = Descriptor{Name: p.Name(), Priority: i + 1, Provider: p}
	}
	return descriptors
}

// Normalize checks that a series is usable and returns a sorted copy with
// duplicate timestamps collapsed to the last occurrence.
func Normalize(series domain.MarketSeries) (domain.MarketSeries, error) {
	if len(series.Candles) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}
	for i, c := range series.Candles {
		if !finite(c.Open) || !finite(c.High) || !finite(c.Low) || !finite(c.Close) {
			return domain.MarketSeries{}, fmt.Errorf("row %d has non-finite prices", i)
		}
	}

	candles := make([]domain.Candle, len(series.Candles))
	copy(candles, series.Candles)
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Timestamp.Before(candles[j].Timestamp)
	})

	out := candles[:0]
	for _, c := range candles {
		if n := len(out); n > 0 && out[n-1].Timestamp.Equal(c.Timestamp) {
			out[n-1] = c
			continue
		}
		out = append(out, c)
	}
	series.Candles = out
	return series, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
