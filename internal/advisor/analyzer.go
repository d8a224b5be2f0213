package advisor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stockcast/internal/domain"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	promptSymbolKey   = "Symbol"
	promptStrengthKey = "Signal strength"
	topPromptMarker   = "Return a JSON array"

	defaultCallTimeout = 60 * time.Second
)

const analystSystemPrompt = "You are a professional equity technical analyst. You forecast short-term price direction from technical indicators and answer only with JSON."

const topSystemPrompt = "You are a professional equity strategist. You rank well-known US stocks for the coming week and answer only with JSON."

// Analyzer drives the backend held by a Handle.
type Analyzer struct {
	tracer  trace.Tracer
	handle  *Handle
	timeout time.Duration
}

func NewAnalyzer(tracer trace.Tracer, handle *Handle, timeout time.Duration) *Analyzer {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Analyzer{tracer: tracer, handle: handle, timeout: timeout}
}

func (a *Analyzer) Status() Status {
	return a.handle.Status()
}

// Analyze asks the backend for a forecast. Unparseable replies become the
// neutral forecast; an unavailable backend is returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, symbol string, bundle domain.FeatureBundle, timeframe string) (domain.Forecast, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.analyze")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol), attribute.String("timeframe", timeframe))

	raw, err := a.complete(ctx, analystSystemPrompt, BuildPrompt(symbol, bundle, timeframe))
	if err != nil {
		return domain.Forecast{}, err
	}

	forecast, ok := parseForecast(raw)
	if !ok {
		log.Warn().Str("symbol", symbol).Int("reply_len", len(raw)).Msg("unparseable analysis reply, using neutral forecast")
		return domain.NeutralForecast(), nil
	}
	return forecast, nil
}

// RecommendTop always returns TopSize entries in TopUniverse order. Entries
// the backend omits or gets wrong are filled with defaults.
func (a *Analyzer) RecommendTop(ctx context.Context, marketContext string) ([]domain.Recommendation, error) {
	ctx, span := a.tracer.Start(ctx, "advisor.recommend-top")
	defer span.End()

	raw, err := a.complete(ctx, topSystemPrompt, buildTopPrompt(marketContext))
	if err != nil {
		return nil, err
	}

	parsed := parseRecommendations(raw)
	out := make([]domain.Recommendation, 0, TopSize)
	for _, l := range TopUniverse {
		rec, ok := parsed[l.Symbol]
		if !ok {
			out = append(out, DefaultRecommendation(l))
			continue
		}
		rec.Name = l.Name
		rec.Sector = l.Sector
		if rec.Rationale == "" {
			rec.Rationale = DefaultRecommendation(l).Rationale
		}
		out = append(out, rec)
	}
	return out, nil
}

func (a *Analyzer) complete(ctx context.Context, system, user string) (string, error) {
	backend, err := a.handle.Get(ctx)
	if err != nil {
		return "", err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := backend.Complete(callCtx, system, user)
	if err != nil {
		// A caller that gave up says nothing about the backend.
		if ctx.Err() == nil {
			a.handle.Reset(err)
		}
		return "", &domain.BackendUnavailableError{Backend: backend.Name(), Err: err}
	}
	return raw, nil
}

// BuildPrompt describes the indicator and signal state of one symbol.
func BuildPrompt(symbol string, b domain.FeatureBundle, timeframe string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: %s\n", promptSymbolKey, symbol)
	fmt.Fprintf(&sb, "Timeframe: %s\n\n", timeframe)
	sb.WriteString("Technical summary:\n")
	fmt.Fprintf(&sb, "- Current price: %.2f\n", b.CurrentPrice)
	fmt.Fprintf(&sb, "- Change 1d / 5d / 20d: %.2f%% / %.2f%% / %.2f%%\n", b.PriceChange1D*100, b.PriceChange5D*100, b.PriceChange20D*100)
	fmt.Fprintf(&sb, "- RSI(14): %.1f\n", b.RSI)
	fmt.Fprintf(&sb, "- MACD vs signal: %s\n", macdLabel(b.MACDSignal))
	fmt.Fprintf(&sb, "- SMA5/SMA20: %.3f, price/SMA20: %.3f\n", b.SMA5To20Ratio, b.PriceToSMA20)
	fmt.Fprintf(&sb, "- Volatility(20): %.3f, ATR(14): %.3f\n", b.Volatility20D, b.ATR)
	fmt.Fprintf(&sb, "- Volume ratio: %.2f, volume trend: %.2f\n", b.VolumeRatio, b.VolumeTrend)
	if b.Support > 0 && b.Resistance > 0 {
		fmt.Fprintf(&sb, "- Support / resistance: %.2f / %.2f\n", b.Support, b.Resistance)
	}
	fmt.Fprintf(&sb, "- Anomaly score: %.2f\n", b.AnomalyScore)
	if len(b.Signals) > 0 {
		fmt.Fprintf(&sb, "- Triggered signals: %s\n", strings.Join(b.Signals, ", "))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s: %s\n", promptStrengthKey, b.SignalStrength)
	fmt.Fprintf(&sb, "Signal score: %.1f\n\n", b.SignalScore)
	sb.WriteString(`Respond with a JSON object with these fields:
- direction: "up", "down" or "neutral"
- probability: number between 0 and 100
- price_change_percent: expected price change in percent
- rationale: short explanation
- confidence: "high", "medium" or "low"
- risk_factors: list of strings
Stay objective and cautious.`)
	return sb.String()
}

func buildTopPrompt(marketContext string) string {
	var sb strings.Builder
	sb.WriteString("Market context:\n")
	sb.WriteString(marketContext)
	sb.WriteString("\n\nCandidates: ")
	symbols := make([]string, 0, TopSize)
	for _, l := range TopUniverse {
		symbols = append(symbols, l.Symbol)
	}
	sb.WriteString(strings.Join(symbols, ", "))
	sb.WriteString("\n\n")
	sb.WriteString(topPromptMarker)
	sb.WriteString(` with one object per candidate: symbol, direction ("up", "down" or "neutral"), probability (0-100), rationale, risk_level ("low", "medium" or "high"), expected_return (for example "+5.2%").`)
	return sb.String()
}

func macdLabel(v int) string {
	switch {
	case v > 0:
		return "above"
	case v < 0:
		return "below"
	default:
		return "unavailable"
	}
}
