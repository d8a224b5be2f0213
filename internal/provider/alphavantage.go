package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/tidwall/gjson"
)

const alphaVantageBaseURL = "https://www.alphavantage.co"

// AlphaVantage uses TIME_SERIES_INTRADAY for the short period and
// TIME_SERIES_DAILY otherwise.
type AlphaVantage struct {
	c      client
	apiKey string
}

func NewAlphaVantage(apiKey string, opts ...Option) *AlphaVantage {
	return &AlphaVantage{c: newClient(alphaVantageBaseURL, opts), apiKey: apiKey}
}

func (a *AlphaVantage) Name() string { return NameAlphaVantage }

func (a *AlphaVantage) query(ctx context.Context, params url.Values) (gjson.Result, error) {
	params.Set("apikey", a.apiKey)
	var body []byte
	if err := a.c.get(ctx, "/query", params, &body); err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.New("alpha vantage: invalid json")
	}
	doc := gjson.ParseBytes(body)
	for _, key := range []string{"Error Message", "Note", "Information"} {
		if msg := doc.Get(key); msg.Exists() {
			return gjson.Result{}, fmt.Errorf("alpha vantage: %s", msg.String())
		}
	}
	return doc, nil
}

func (a *AlphaVantage) FetchSeries(ctx context.Context, symbol, period string) (domain.MarketSeries, error) {
	params := url.Values{"symbol": {symbol}, "outputsize": {"compact"}}
	layout := "2006-01-02"
	if period == domain.Period5D {
		params.Set("function", "TIME_SERIES_INTRADAY")
		params.Set("interval", "5min")
		layout = "2006-01-02 15:04:05"
	} else {
		params.Set("function", "TIME_SERIES_DAILY")
	}

	doc, err := a.query(ctx, params)
	if err != nil {
		return domain.MarketSeries{}, err
	}

	var rows gjson.Result
	doc.ForEach(func(key, value gjson.Result) bool {
		if strings.HasPrefix(key.String(), "Time Series") {
			rows = value
			return false
		}
		return true
	})
	if !rows.Exists() {
		return domain.MarketSeries{}, ErrNoData
	}

	var candles []domain.Candle
	var parseErr error
	rows.ForEach(func(key, value gjson.Result) bool {
		ts, err := time.ParseInLocation(layout, key.String(), time.UTC)
		if err != nil {
			parseErr = fmt.Errorf("alpha vantage: bad timestamp %q: %w", key.String(), err)
			return false
		}
		candles = append(candles, domain.Candle{
			Timestamp: ts,
			Open:      value.Get(`1\. open`).Float(),
			High:      value.Get(`2\. high`).Float(),
			Low:       value.Get(`3\. low`).Float(),
			Close:     value.Get(`4\. close`).Float(),
			Volume:    value.Get(`5\. volume`).Float(),
		})
		return true
	})
	if parseErr != nil {
		return domain.MarketSeries{}, parseErr
	}
	if len(candles) == 0 {
		return domain.MarketSeries{}, ErrNoData
	}
	return domain.MarketSeries{
		Symbol:     symbol,
		Period:     period,
		Source:     NameAlphaVantage,
		Provenance: domain.ProvenanceReal,
		Candles:    candles,
	}, nil
}

func (a *AlphaVantage) FetchInfo(ctx context.Context, symbol string) (domain.StockInfo, error) {
	doc, err := a.query(ctx, url.Values{"function": {"OVERVIEW"}, "symbol": {symbol}})
	if err != nil {
		return domain.StockInfo{}, err
	}
	if !doc.Get("Symbol").Exists() {
		return domain.StockInfo{}, ErrNoData
	}
	info := domain.StockInfo{
		Symbol:        symbol,
		Name:          doc.Get("Name").String(),
		Sector:        doc.Get("Sector").String(),
		Industry:      doc.Get("Industry").String(),
		MarketCap:     doc.Get("MarketCapitalization").Float(),
		PERatio:       doc.Get("PERatio").Float(),
		DividendYield: doc.Get("DividendYield").Float(),
		High52Week:    doc.Get("52WeekHigh").Float(),
		Low52Week:     doc.Get("52WeekLow").Float(),
		CurrentPrice:  doc.Get("50DayMovingAverage").Float(),
		Currency:      doc.Get("Currency").String(),
		Exchange:      doc.Get("Exchange").String(),
	}
	return info.FillDefaults(), nil
}
