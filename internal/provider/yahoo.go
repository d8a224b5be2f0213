package provider

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"stockcast/internal/domain"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

type yahooChartResponse struct {
	Chart struct {
		Result []yahooResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type yahooResult struct {
	Meta       yahooMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

type yahooMeta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	ExchangeName       string  `json:"exchangeName"`
	FullExchangeName   string  `json:"fullExchangeName"`
	LongName           string  `json:"longName"`
	ShortName          string  `json:"shortName"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
}

// Yahoo reads the public chart endpoint.
type Yahoo struct {
	c client
}

func NewYahoo(opts ...Option) *Yahoo {
	return &Yahoo{c: newClient(yahooBaseURL, opts)}
}

func (y *Yahoo) Name() string { return NameYahoo }

func (y *Yahoo) chart(ctx context.Context, symbol, rng, interval string) (yahooResult, error) {
	var resp yahooChartResponse
	query := url.Values{"range": {rng}, "interval": {interval}}
	if err := y.c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), query, &resp); err != nil {
		return yahooResult{}, err
	}
	if resp.Chart.Error != nil {
		return yahooResult{}, fmt.Errorf("yahoo: %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return yahooResult{}, ErrNoData
	}
	return resp.Chart.Result[0], nil
}

func (y *Yahoo) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	interval := "1d"
	if period == domain.Period5D {
		interval = "5m"
	}
	result, err := y.chart(ctx, symbol, period, interval)
	if err != nil {
		return domain.MarketSeries{}, err
	}
	if len(result.Indicators.Quote) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}

	q := result.Indicators.Quote[0]
	candles := make([]domain.Candle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		open, okO := at(q.Open, i)
		high, okH := at(q.High, i)
		low, okL := at(q.Low, i)
		cl, okC := at(q.Close, i)
		if !okO || !okH || !okL || !okC {
			continue
		}
		vol, _ := at(q.Volume, i)
		candles = append(candles, domain.Candle{
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     cl,
			Volume:    vol,
		})
	}
	if len(candles) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}
	return domain.MarketSeries{
		Symbol:     symbol,
		Period:     period,
		Source:     NameYahoo,
		Provenance: domain.ProvenanceReal,
		Candles:    candles,
	}, nil
}

func (y *Yahoo) FetchInfo(ctx context.Context, symbol string) (domain.StockInfo, error) {
	result, err := y.chart(ctx, symbol, domain.Period5D, "1d")
	if err != nil {
		return domain.StockInfo{}, err
	}
	m := result.Meta
	name := m.LongName
	if name == "" {
		name = m.ShortName
	}
	exchange := m.FullExchangeName
	if exchange == "" {
		exchange = m.ExchangeName
	}
	info := domain.StockInfo{
		Symbol:       symbol,
		Name:         name,
		CurrentPrice: m.RegularMarketPrice,
		High52Week:   m.FiftyTwoWeekHigh,
		Low52Week:    m.FiftyTwoWeekLow,
		Currency:     m.Currency,
		Exchange:     exchange,
	}
	return info.FillDefaults(), nil
}

func at(values []*float64, i int) (float64, bool) {
	if i >= len(values) || values[i] == nil {
		return 0, false
	}
	return *values[i], true
}
