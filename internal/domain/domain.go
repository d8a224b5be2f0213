package domain

import "time"

// Candle is one OHLCV row of a price series.
type Candle struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Provenance tells callers where a series came from.
type Provenance string

const (
	ProvenanceReal      Provenance = "real"
	ProvenanceArchive   Provenance = "archive"
	ProvenanceSynthetic Provenance = "synthetic"
)

// MarketSeries is an ascending, de-duplicated run of candles for one symbol
// and lookback period. It is never mutated after a provider returns it.
type MarketSeries struct {
	Symbol     string     `json:"symbol"`
	Period     string     `json:"period"`
	Source     string     `json:"source"`
	Provenance Provenance `json:"provenance"`
	Candles    []Candle   `json:"candles"`
}

func (s MarketSeries) Len() int {
	return len(s.Candles)
}

// Last returns the most recent candle and false when the series is empty.
func (s MarketSeries) Last() (Candle, bool) {
	if len(s.Candles) == 0 {
		return Candle{}, false
	}
	return s.Candles[len(s.Candles)-1], true
}

// StockInfo is descriptive metadata for a ticker. Missing values default to
// zero or "Unknown", never null.
type StockInfo struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Sector        string  `json:"sector"`
	Industry      string  `json:"industry"`
	MarketCap     float64 `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	DividendYield float64 `json:"dividend_yield"`
	High52Week    float64 `json:"52_week_high"`
	Low52Week     float64 `json:"52_week_low"`
	CurrentPrice  float64 `json:"current_price"`
	Currency      string  `json:"currency"`
	Exchange      string  `json:"exchange"`
}

const UnknownField = "Unknown"

// DefaultStockInfo is the sentinel record used when no provider knows the symbol.
func DefaultStockInfo(symbol string) StockInfo {
	return StockInfo{
		Symbol:   symbol,
		Name:     symbol,
		Sector:   UnknownField,
		Industry: UnknownField,
		Currency: "USD",
		Exchange: UnknownField,
	}
}

// FillDefaults replaces empty text fields with the sentinel values.
func (i StockInfo) FillDefaults() StockInfo {
	if i.Name == "" {
		i.Name = i.Symbol
	}
	if i.Sector == "" {
		i.Sector = UnknownField
	}
	if i.Industry == "" {
		i.Industry = UnknownField
	}
	if i.Currency == "" {
		i.Currency = "USD"
	}
	if i.Exchange == "" {
		i.Exchange = UnknownField
	}
	return i
}

type SignalStrength string

const (
	StrengthStrongBullish SignalStrength = "strong_bullish"
	StrengthBullish       SignalStrength = "bullish"
	StrengthNeutral       SignalStrength = "neutral"
	StrengthBearish       SignalStrength = "bearish"
	StrengthStrongBearish SignalStrength = "strong_bearish"
)

// SignalScore is the rule-engine verdict for the latest row of an indicator set.
type SignalScore struct {
	Score    float64        `json:"score"`
	Strength SignalStrength `json:"strength"`
	Signals  []string       `json:"signals"`
}

// Levels holds trailing-window support and resistance. Both are zero when
// there was not enough history.
type Levels struct {
	Support    float64 `json:"support"`
	Resistance float64 `json:"resistance"`
}

// FeatureBundle is the flattened view of the latest market state handed to
// the analysis backend.
type FeatureBundle struct {
	CurrentPrice   float64        `json:"current_price"`
	PriceChange1D  float64        `json:"price_change_1d"`
	PriceChange5D  float64        `json:"price_change_5d"`
	PriceChange20D float64        `json:"price_change_20d"`
	VolumeRatio    float64        `json:"volume_ratio"`
	VolumeTrend    float64        `json:"volume_trend"`
	Volatility20D  float64        `json:"volatility_20d"`
	ATR            float64        `json:"atr"`
	RSI            float64        `json:"rsi"`
	MACDSignal     int            `json:"macd_signal"`
	SMA5To20Ratio  float64        `json:"sma_5_20_ratio"`
	PriceToSMA20   float64        `json:"price_sma_20_ratio"`
	SignalScore    float64        `json:"signal_score"`
	SignalStrength SignalStrength `json:"signal_strength"`
	Signals        []string       `json:"signals"`
	Support        float64        `json:"support"`
	Resistance     float64        `json:"resistance"`
	AnomalyScore   float64        `json:"anomaly_score"`
	DayOfWeek      int            `json:"day_of_week"`
	Hour           int            `json:"hour"`
}

type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

func (d Direction) IsValid() bool {
	switch d {
	case DirectionUp, DirectionDown, DirectionNeutral:
		return true
	}
	return false
}

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

func (c Confidence) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	}
	return false
}

// Forecast is the structured record produced by the analysis backend.
type Forecast struct {
	Direction          Direction  `json:"direction"`
	Probability        float64    `json:"probability"`
	PriceChangePercent float64    `json:"price_change_percent"`
	Rationale          string     `json:"rationale"`
	Confidence         Confidence `json:"confidence"`
	RiskFactors        []string   `json:"risk_factors"`
}

// NeutralForecast is substituted when a backend reply cannot be parsed.
func NeutralForecast() Forecast {
	return Forecast{
		Direction:   DirectionNeutral,
		Probability: 50,
		Rationale:   "parse failure",
		Confidence:  ConfidenceLow,
		RiskFactors: []string{},
	}
}

type PriceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Advice struct {
	PriceRange  PriceRange `json:"price_range"`
	Action      string     `json:"action"`
	RiskWarning string     `json:"risk_warning"`
}

// Report is the final result of one pipeline run.
type Report struct {
	RunID          string         `json:"run_id"`
	Symbol         string         `json:"symbol"`
	Timeframe      string         `json:"timeframe"`
	Direction      Direction      `json:"direction"`
	Probability    float64        `json:"probability"`
	PriceRange     PriceRange     `json:"price_range"`
	Confidence     Confidence     `json:"confidence"`
	Rationale      string         `json:"rationale"`
	Action         string         `json:"action"`
	RiskWarning    string         `json:"risk_warning"`
	Disclaimer     string         `json:"disclaimer"`
	Summary        string         `json:"summary"`
	CurrentPrice   float64        `json:"current_price"`
	SignalScore    float64        `json:"signal_score"`
	SignalStrength SignalStrength `json:"signal_strength"`
	Signals        []string       `json:"signals"`
	Support        float64        `json:"support"`
	Resistance     float64        `json:"resistance"`
	DataSource     string         `json:"data_source"`
	Provenance     Provenance     `json:"provenance"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// Recommendation is one entry of the top-stocks list.
type Recommendation struct {
	Symbol         string    `json:"symbol"`
	Name           string    `json:"name"`
	Sector         string    `json:"sector"`
	Direction      Direction `json:"direction"`
	Probability    float64   `json:"probability"`
	Rationale      string    `json:"rationale"`
	RiskLevel      string    `json:"risk_level"`
	ExpectedReturn string    `json:"expected_return"`
}

type TopList struct {
	Recommendations []Recommendation `json:"recommendations"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Disclaimer      string           `json:"disclaimer"`
}

// ForecastFilter narrows a forecast history query.
type ForecastFilter struct {
	Symbol string
	Limit  int
}

// TickerListing is a searchable (symbol, name) pair.
type TickerListing struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}

// Snapshot is the stock overview served by the REST API.
type Snapshot struct {
	Info       StockInfo          `json:"info"`
	Timeframe  string             `json:"timeframe"`
	Candles    []Candle           `json:"candles"`
	Indicators map[string]float64 `json:"indicators"`
	Levels     Levels             `json:"levels"`
	Score      SignalScore        `json:"score"`
	Provenance Provenance         `json:"provenance"`
	Source     string             `json:"source"`
}
