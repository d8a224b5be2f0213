package provider

import (
	"context"

	"stockcast/internal/domain"
)

// SeriesArchive is the read side of the Postgres series archive.
type SeriesArchive interface {
	LatestSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error)
}

// Archive serves the last series archived for a key when every live vendor
// has failed.
type Archive struct {
	store SeriesArchive
}

func NewArchive(store SeriesArchive) *Archive {
	return &Archive{store: store}
}

func (a *Archive) Name() string { return NameArchive }

func (a *Archive) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	series, err := a.store.LatestSeries(ctx, symbol, period)
	if err != nil {
		return domain.MarketSeries{}, err
	}
	if len(series.Candles) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}
	series.Symbol = symbol
	series.Period = period
	series.Source = NameArchive
	series.Provenance = domain.ProvenanceArchive
	return series, nil
}
