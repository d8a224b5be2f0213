package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"stockcast/internal/domain"
)

const polygonBaseURL = "https://api.polygon.io"

var polygonLookbackDays = map[string]int{
	domain.Period5D: 5,
	domain.Period1M: 30,
	domain.Period3M: 90,
}

type polygonAggs struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Results []struct {
		T int64   `json:"t"`
		O float64 `json:"o"`
		H float64 `json:"h"`
		L float64 `json:"l"`
		C float64 `json:"c"`
		V float64 `json:"v"`
	} `json:"results"`
}

type polygonTicker struct {
	Results struct {
		Name            string  `json:"name"`
		PrimaryExchange string  `json:"primary_exchange"`
		MarketCap       float64 `json:"market_cap"`
		CurrencyName    string  `json:"currency_name"`
		SICDescription  string  `json:"sic_description"`
	} `json:"results"`
}

// Polygon reads daily aggregates over a fixed calendar lookback.
type Polygon struct {
	c      client
	apiKey string
	now    func() time.Time
}

func NewPolygon(apiKey string, opts ...Option) *Polygon {
	return &Polygon{c: newClient(polygonBaseURL, opts), apiKey: apiKey, now: time.Now}
}

func (p *Polygon) Name() string { return NamePolygon }

func (p *Polygon) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	days, ok := polygonLookbackDays[period]
	if !ok {
		days = 30
	}
	end := p.now().UTC()
	start := end.AddDate(0, 0, -days)
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s",
		url.PathEscape(symbol), start.Format("2006-01-02"), end.Format("2006-01-02"))

	var resp polygonAggs
	if err := p.c.get(ctx, path, url.Values{"adjusted": {"true"}, "apiKey": {p.apiKey}}, &resp); err != nil {
		return domain.MarketSeries{}, err
	}
	if resp.Status == "ERROR" {
		return domain.MarketSeries{}, fmt.Errorf("polygon: %s", resp.Error)
	}
	if len(resp.Results) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}

	candles := make([]domain.Candle, len(resp.Results))
	for i, r := range resp.Results {
		candles[i] = domain.Candle{
			Timestamp: time.UnixMilli(r.T).UTC(),
			Open:      r.O,
			High:      r.H,
			Low:       r.L,
			Close:     r.C,
			Volume:    r.V,
		}
	}
	return domain.MarketSeries{
		Symbol:     symbol,
		Period:     period,
		Source:     NamePolygon,
		Provenance: domain.ProvenanceReal,
		Candles:    candles,
	}, nil
}

func (p *Polygon) FetchInfo(ctx context.Context, symbol string) (domain.StockInfo, error) {
	var resp polygonTicker
	if err := p.c.get(ctx, "/v3/reference/tickers/"+url.PathEscape(symbol), url.Values{"apiKey": {p.apiKey}}, &resp); err != nil {
		return domain.StockInfo{}, err
	}
	if resp.Results.Name == "" {
		return domain.StockInfo{}, ErrNoData
	}
	info := domain.StockInfo{
		Symbol:    symbol,
		Name:      resp.Results.Name,
		Industry:  resp.Results.SICDescription,
		MarketCap: resp.Results.MarketCap,
		Currency:  currencyCode(resp.Results.CurrencyName),
		Exchange:  resp.Results.PrimaryExchange,
	}
	return info.FillDefaults(), nil
}

func currencyCode(name string) string {
	if name == "" {
		return "USD"
	}
	return strings.ToUpper(name)
}
