package indicator

import "stockcast/internal/domain"

// DefaultLevelWindow is the trailing row count used for support/resistance.
const DefaultLevelWindow = 20

// Levels returns the lowest low and highest high over the trailing window.
// A non-positive window falls back to DefaultLevelWindow; fewer rows than the
// window yields zero levels.
func Levels(candles []domain.Candle, window int) domain.Levels {
	if window <= 0 {
		window = DefaultLevelWindow
	}
	if len(candles) < window {
		return domain.Levels{}
	}
	rows := SortedCopy(candles)
	tail := rows[len(rows)-window:]

	levels := domain.Levels{Support: tail[0].Low, Resistance: tail[0].High}
	for _, c := range tail[1:] {
		if c.Low < levels.Support {
			levels.Support = c.Low
		}
		if c.High > levels.Resistance {
			levels.Resistance = c.High
		}
	}
	return levels
}
