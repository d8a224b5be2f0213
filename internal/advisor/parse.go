package advisor

import (
	"math"
	"strconv"
	"strings"

	"stockcast/internal/domain"

	"github.com/tidwall/gjson"
)

// extractJSON returns the first balanced object or array that opens with
// open. Braces inside strings are ignored, so fenced or chatty replies work.
func extractJSON(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// parseForecast reads a backend reply. It reports false when the reply has
// no usable object or names an unknown direction or confidence.
func parseForecast(raw string) (domain.Forecast, bool) {
	obj, ok := extractJSON(raw, '{', '}')
	if !ok || !gjson.Valid(obj) {
		return domain.Forecast{}, false
	}
	r := gjson.Parse(obj)

	dir := domain.Direction(strings.ToLower(strings.TrimSpace(r.Get("direction").String())))
	if !dir.IsValid() {
		return domain.Forecast{}, false
	}
	conf := domain.Confidence(strings.ToLower(strings.TrimSpace(r.Get("confidence").String())))
	if !conf.IsValid() {
		return domain.Forecast{}, false
	}

	prob, ok := number(r.Get("probability"))
	if !ok {
		if nonFinite(r.Get("probability")) {
			return domain.Forecast{}, false
		}
		prob = 50
	}
	change, ok := number(r.Get("price_change_percent"))
	if !ok && nonFinite(r.Get("price_change_percent")) {
		return domain.Forecast{}, false
	}

	rationale := r.Get("rationale").String()
	if rationale == "" {
		rationale = r.Get("reasoning").String()
	}

	return domain.Forecast{
		Direction:          dir,
		Probability:        clamp(prob, 0, 100),
		PriceChangePercent: change,
		Rationale:          rationale,
		Confidence:         conf,
		RiskFactors:        stringList(r.Get("risk_factors")),
	}, true
}

// parseRecommendations indexes the valid entries of a reply array by symbol.
func parseRecommendations(raw string) map[string]domain.Recommendation {
	out := map[string]domain.Recommendation{}
	arr, ok := extractJSON(raw, '[', ']')
	if !ok || !gjson.Valid(arr) {
		return out
	}
	gjson.Parse(arr).ForEach(func(_, item gjson.Result) bool {
		symbol := strings.ToUpper(strings.TrimSpace(item.Get("symbol").String()))
		dir := domain.Direction(strings.ToLower(item.Get("direction").String()))
		prob, okProb := number(item.Get("probability"))
		if symbol == "" || !dir.IsValid() || !okProb {
			return true
		}
		rationale := item.Get("rationale").String()
		if rationale == "" {
			rationale = item.Get("reasoning").String()
		}
		ret := item.Get("expected_return").String()
		if ret == "" {
			return true
		}
		out[symbol] = domain.Recommendation{
			Symbol:         symbol,
			Direction:      dir,
			Probability:    clamp(prob, 0, 100),
			Rationale:      rationale,
			RiskLevel:      RiskLevel(dir),
			ExpectedReturn: ret,
		}
		return true
	})
	return out
}

// number accepts finite JSON numbers and numeric strings such as "72.5%".
func number(r gjson.Result) (float64, bool) {
	v, ok := rawNumber(r)
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// nonFinite reports a value that parses as NaN or an infinity, including
// JSON numbers out of float64 range.
func nonFinite(r gjson.Result) bool {
	v, ok := rawNumber(r)
	return ok && (math.IsNaN(v) || math.IsInf(v, 0))
}

func rawNumber(r gjson.Result) (float64, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Num, true
	case gjson.String:
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(r.Str), "%"), 64)
		return v, err == nil
	default:
		return 0, false
	}
}

func stringList(r gjson.Result) []string {
	out := []string{}
	switch {
	case r.IsArray():
		for _, item := range r.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
		}
	case r.Type == gjson.String && strings.TrimSpace(r.Str) != "":
		out = append(out, strings.TrimSpace(r.Str))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
