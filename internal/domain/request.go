package domain

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	Timeframe1H = "1h"
	Timeframe1D = "1d"
	Timeframe1W = "1w"

	Period5D  = "5d"
	Period1M  = "1mo"
	Period3M  = "3mo"
	MaxSymbol = 10
)

var SupportedTimeframes = []string{Timeframe1H, Timeframe1D, Timeframe1W}

var timeframePeriods = map[string]string{
	Timeframe1H: Period5D,
	Timeframe1D: Period1M,
	Timeframe1W: Period3M,
}

// PeriodFor maps a forecast timeframe onto the lookback window to fetch.
func PeriodFor(timeframe string) (string, bool) {
	p, ok := timeframePeriods[timeframe]
	return p, ok
}

var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9.\-]{1,10}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("ticker", func(fl validator.FieldLevel) bool {
		return tickerPattern.MatchString(fl.Field().String())
	})
	return v
}

// Request is a validated forecast request.
type Request struct {
	Symbol    string `json:"symbol" validate:"required,ticker"`
	Timeframe string `json:"timeframe" validate:"required,oneof=1h 1d 1w"`
	Period    string `json:"period"`
}

// NewRequest normalizes and validates user input. It performs no I/O.
func NewRequest(symbol, timeframe string) (Request, error) {
	req := Request{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Timeframe: strings.ToLower(strings.TrimSpace(timeframe)),
	}
	if err := validate.Struct(req); err != nil {
		return Request{}, toValidationError(err)
	}
	req.Period, _ = PeriodFor(req.Timeframe)
	return req, nil
}

// ValidateSymbol checks a bare ticker, for lookups that take no timeframe.
func ValidateSymbol(symbol string) (string, error) {
	req, err := NewRequest(symbol, Timeframe1D)
	if err != nil {
		return "", err
	}
	return req.Symbol, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "request", Reason: err.Error()}
	}
	fe := fieldErrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "is required"}
	case "ticker":
		return &ValidationError{Field: field, Reason: "must be 1-10 characters of letters, digits, '.' or '-'"}
	case "oneof":
		return &ValidationError{Field: field, Reason: "must be one of " + strings.Join(SupportedTimeframes, ", ")}
	default:
		return &ValidationError{Field: field, Reason: "failed " + fe.Tag() + " check"}
	}
}
