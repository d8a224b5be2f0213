package advisor

import (
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"

	"stockcast/internal/domain"
)

// TopSize is the fixed length of every recommendation list.
const TopSize = 10

type Listing struct {
	Symbol string
	Name   string
	Sector string
}

// TopUniverse fixes the order and names of the recommendation list.
var TopUniverse = [TopSize]Listing{
	{"AAPL", "Apple Inc.", "Technology"},
	{"MSFT", "Microsoft Corporation", "Technology"},
	{"GOOGL", "Alphabet Inc.", "Technology"},
	{"AMZN", "Amazon.com Inc.", "Consumer Discretionary"},
	{"TSLA", "Tesla Inc.", "Consumer Discretionary"},
	{"NVDA", "NVIDIA Corporation", "Technology"},
	{"META", "Meta Platforms Inc.", "Technology"},
	{"NFLX", "Netflix Inc.", "Communication Services"},
	{"AMD", "Advanced Micro Devices", "Technology"},
	{"CRM", "Salesforce Inc.", "Technology"},
}

// RiskLevel maps a direction to its recommendation risk bucket.
func RiskLevel(d domain.Direction) string {
	switch d {
	case domain.DirectionUp:
		return "medium"
	case domain.DirectionDown:
		return "high"
	default:
		return "low"
	}
}

// DefaultRecommendation is the deterministic entry used when a backend reply
// is missing or invalid for a listing.
func DefaultRecommendation(l Listing) domain.Recommendation {
	rng := seededRand(l.Symbol + "|top")
	directions := []domain.Direction{domain.DirectionUp, domain.DirectionDown, domain.DirectionNeutral}
	dir := directions[rng.Intn(len(directions))]

	var rationale string
	var ret float64
	switch dir {
	case domain.DirectionUp:
		rationale = fmt.Sprintf("%s shows firm technical and fundamental support in %s; near-term strength expected.", l.Name, l.Sector)
		ret = between(rng, 3, 12)
	case domain.DirectionDown:
		rationale = fmt.Sprintf("%s faces headwinds and its indicators point to a pullback; stay cautious.", l.Name)
		ret = between(rng, -8, -2)
	default:
		rationale = fmt.Sprintf("%s is consolidating sideways and needs more signals to confirm a direction.", l.Name)
		ret = between(rng, -2, 3)
	}

	return domain.Recommendation{
		Symbol:         l.Symbol,
		Name:           l.Name,
		Sector:         l.Sector,
		Direction:      dir,
		Probability:    round1(between(rng, 55, 80)),
		Rationale:      rationale,
		RiskLevel:      RiskLevel(dir),
		ExpectedReturn: formatReturn(ret),
	}
}

func formatReturn(pct float64) string {
	return fmt.Sprintf("%+.1f%%", round1(pct))
}

func seededRand(key string) *rand.Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func between(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
