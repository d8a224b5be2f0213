package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"stockcast/internal/domain"
)

const iexCloudBaseURL = "https://cloud.iexapis.com"

var iexRanges = map[string]string{
	domain.Period5D: "5d",
	domain.Period1M: "1m",
	domain.Period3M: "3m",
}

type iexBar struct {
	Date   string   `json:"date"`
	Open   *float64 `json:"open"`
	High   *float64 `json:"high"`
	Low    *float64 `json:"low"`
	Close  *float64 `json:"close"`
	Volume *float64 `json:"volume"`
}

type iexCompany struct {
	CompanyName string `json:"companyName"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Exchange    string `json:"exchange"`
}

type iexQuote struct {
	LatestPrice float64 `json:"latestPrice"`
	MarketCap   float64 `json:"marketCap"`
	PERatio     float64 `json:"peRatio"`
	Week52High  float64 `json:"week52High"`
	Week52Low   float64 `json:"week52Low"`
	Currency    string  `json:"currency"`
}

type IEXCloud struct {
	c     client
	token string
}

func NewIEXCloud(token string, opts ...Option) *IEXCloud {
	return &IEXCloud{c: newClient(iexCloudBaseURL, opts), token: token}
}

func (p *IEXCloud) Name() string { return NameIEXCloud }

func (p *IEXCloud) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	rng, ok := iexRanges[period]
	if !ok {
		rng = "1m"
	}
	var bars []iexBar
	path := fmt.Sprintf("/stable/stock/%s/chart/%s", url.PathEscape(symbol), rng)
	if err := p.c.get(ctx, path, url.Values{"token": {p.token}}, &bars); err != nil {
		return domain.MarketSeries{}, err
	}

	candles := make([]domain.Candle, 0, len(bars))
	for _, b := range bars {
		if b.Open == nil || b.High == nil || b.Low == nil || b.Close == nil {
			continue
		}
		ts, err := time.ParseInLocation("2006-01-02", b.Date, time.UTC)
		if err != nil {
			return domain.MarketSeries{}, fmt.Errorf("iex cloud: bad date %q: %w", b.Date, err)
		}
		var vol float64
		if b.Volume != nil {
			vol = *b.Volume
		}
		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Open:      *b.Open,
			High:      *b.High,
			Low:       *b.Low,
			Close:     *b.Close,
			Volume:    vol,
		})
	}
	if len(candles) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}
	return domain.MarketSeries{
		Symbol:     symbol,
		Period:     period,
		Source:     NameIEXCloud,
		Provenance: domain.ProvenanceReal,
		Candles:    candles,
	}, nil
}

func (p *IEXCloud) FetchInfo(ctx context.Context, symbol string) (domain.StockInfo, error) {
	token := url.Values{"token": {p.token}}
	base := "/stable/stock/" + url.PathEscape(symbol)

	var company iexCompany
	if err := p.c.get(ctx, base+"/company", token, &company); err != nil {
		return domain.StockInfo{}, err
	}
	var quote iexQuote
	if err := p.c.get(ctx, base+"/quote", token, &quote); err != nil {
		return domain.StockInfo{}, err
	}

	info := domain.StockInfo{
		Symbol:       symbol,
		Name:         company.CompanyName,
		Sector:       company.Sector,
		Industry:     company.Industry,
		MarketCap:    quote.MarketCap,
		PERatio:      quote.PERatio,
		High52Week:   quote.Week52High,
		Low52Week:    quote.Week52Low,
		CurrentPrice: quote.LatestPrice,
		Currency:     quote.Currency,
		Exchange:     company.Exchange,
	}
	return info.FillDefaults(), nil
}
