package features

import (
	"math"

	goiforest "github.com/narumiruna/go-iforest/pkg/iforest"
	"gonum.org/v1/gonum/stat"
)

// MinAnomalyRows is the shortest series the forest is fitted on.
const MinAnomalyRows = 20

type AnomalyOptions struct {
	NumTrees   int
	SampleSize int
	Threshold  float64
}

func DefaultAnomalyOptions() AnomalyOptions {
	return AnomalyOptions{
		NumTrees:   100,
		SampleSize: 256,
		Threshold:  0.6,
	}
}

// AnomalyScore fits an isolation forest on the rows and scores the last one.
// The result is clamped to [0, 1]; short or degenerate input scores 0.
func AnomalyScore(rows [][]float64, opts AnomalyOptions) float64 {
	if len(rows) < MinAnomalyRows || len(rows[0]) == 0 {
		return 0
	}
	defaults := DefaultAnomalyOptions()
	if opts.NumTrees <= 0 {
		opts.NumTrees = defaults.NumTrees
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = defaults.SampleSize
	}
	if opts.Threshold <= 0 {
		opts.Threshold = defaults.Threshold
	}
	if opts.SampleSize > len(rows) {
		opts.SampleSize = len(rows)
	}

	means, stds := fitNormalizer(rows)
	normalized := make([][]float64, len(rows))
	for i := range rows {
		normalized[i] = normalize(rows[i], means, stds)
	}

	forest := goiforest.NewWithOptions(goiforest.Options{
		DetectionType: goiforest.DetectionTypeThreshold,
		Threshold:     opts.Threshold,
		NumTrees:      opts.NumTrees,
		SampleSize:    opts.SampleSize,
	})
	forest.Fit(normalized)

	scores := forest.Score([][]float64{normalized[len(normalized)-1]})
	if len(scores) == 0 {
		return 0
	}
	return clamp01(scores[0])
}

func fitNormalizer(rows [][]float64) ([]float64, []float64) {
	width := len(rows[0])
	means := make([]float64, width)
	stds := make([]float64, width)
	column := make([]float64, len(rows))
	for j := 0; j < width; j++ {
		for i := range rows {
			column[i] = rows[i][j]
		}
		means[j], stds[j] = stat.PopMeanStdDev(column, nil)
		if stds[j] == 0 || math.IsNaN(stds[j]) {
			stds[j] = 1
		}
	}
	return means, stds
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || math.IsInf(v, 0) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
