package calculators

import (
	"fmt"

	"github.com/wm2snap/migrator/internal/estimation"
)

const (
	// DefaultBandRatio selects past migrations within ±50% of the queried size.
	DefaultBandRatio = 0.5
	// DefaultMinSimilar is the number of similar-size migrations required for a median.
	DefaultMinSimilar = 3
)

// Compile-time assertion that HistoricalMedian implements the Calculator interface.
var _ estimation.Calculator = (*HistoricalMedian)(nil)

// HistoricalMedian estimates from the median duration of past migrations of a similar size.
type HistoricalMedian struct {
	bandRatio  float64
	minSimilar int
}

type HistoricalMedianOption func(*HistoricalMedian)

// WithMinSimilar sets how many similar-size migrations are needed. Values below 1 are ignored.
func WithMinSimilar(n int) HistoricalMedianOption {
	return func(c *HistoricalMedian) {
		if n > 0 {
			c.minSimilar = n
		}
	}
}

func NewHistoricalMedian(opts ...HistoricalMedianOption) *HistoricalMedian {
	res := HistoricalMedian{
		bandRatio:  DefaultBandRatio,
		minSimilar: DefaultMinSimilar,
	}

	for _, opt := range opts {
		opt(&res)
	}

	return &res
}

func (c *HistoricalMedian) Name() string {
	return "historical_median"
}

func (c *HistoricalMedian) Keys() []string {
	return []string{estimation.ParamFileSizeMB, estimation.ParamHistory}
}

func (c *HistoricalMedian) Calculate(params map[string]estimation.Param) (estimation.Estimation, error) {
	size, err := fileSize(params)
	if err != nil {
		return estimation.Estimation{}, err
	}

	samples, err := history(params)
	if err != nil {
		return estimation.Estimation{}, err
	}

	similar := c.similar(size, samples)
	if len(similar) < c.minSimilar {
		return estimation.Estimation{}, estimation.ErrNotApplicable
	}

	_, times := estimation.Split(similar)
	median := estimation.Median(times)
	// the reported range covers the whole history, not only the similar subset
	sizeRange := estimation.RangeOf(samples)

	return estimation.Estimation{
		EstimatedSeconds: median * estimation.ComplexityFactor(size),
		Method:           estimation.MethodHistoricalMedian,
		Confidence:       estimation.ConfidenceHigh,
		Complexity:       estimation.ComplexityOf(size),
		SampleSize:       len(similar),
		Explanation: fmt.Sprintf("Based on %d similar migrations. Files of size %.2f MB typically take %s to migrate.",
			len(similar), size, estimation.FormatDuration(median)),
		SizeRange: &sizeRange,
	}, nil
}

// similar returns the samples whose size lies in the inclusive band around size.
func (c *HistoricalMedian) similar(size float64, samples []estimation.Sample) []estimation.Sample {
	low := (1 - c.bandRatio) * size
	high := (1 + c.bandRatio) * size

	res := make([]estimation.Sample, 0, len(samples))
	for _, s := range samples {
		if s.SizeMB >= low && s.SizeMB <= high {
			res = append(res, s)
		}
	}
	return res
}
