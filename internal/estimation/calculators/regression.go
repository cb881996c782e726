package calculators

import (
	"fmt"
	"slices"

	"github.com/wm2snap/migrator/internal/estimation"
	"gonum.org/v1/gonum/stat"
)

// DefaultMinRecords is the history length required before a regression line is fitted.
const DefaultMinRecords = 5

// Compile-time assertion that Regression implements the Calculator interface.
var _ estimation.Calculator = (*Regression)(nil)

// Regression fits an ordinary least-squares line duration = slope*size + intercept over the whole history.
type Regression struct {
	minRecords int
}

type RegressionOption func(*Regression)

// WithMinRecords sets the history length required for a fit. Values below 2 are ignored.
func WithMinRecords(n int) RegressionOption {
	return func(c *Regression) {
		if n >= 2 {
			c.minRecords = n
		}
	}
}

func NewRegression(opts ...RegressionOption) *Regression {
	res := Regression{minRecords: DefaultMinRecords}

	for _, opt := range opts {
		opt(&res)
	}

	return &res
}

func (c *Regression) Name() string {
	return "regression"
}

func (c *Regression) Keys() []string {
	return []string{estimation.ParamFileSizeMB, estimation.ParamHistory}
}

func (c *Regression) Calculate(params map[string]estimation.Param) (estimation.Estimation, error) {
	size, err := fileSize(params)
	if err != nil {
		return estimation.Estimation{}, err
	}

	samples, err := history(params)
	if err != nil {
		return estimation.Estimation{}, err
	}

	if len(samples) < c.minRecords {
		return estimation.Estimation{}, estimation.ErrNotApplicable
	}

	slope, intercept := Fit(samples)
	sizeRange := estimation.RangeOf(samples)

	return estimation.Estimation{
		EstimatedSeconds: (slope*size + intercept) * estimation.ComplexityFactor(size),
		Method:           estimation.MethodRegression,
		Confidence:       estimation.ConfidenceMedium,
		Complexity:       estimation.ComplexityOf(size),
		SampleSize:       len(samples),
		Explanation: fmt.Sprintf("Based on analysis of %d previous migrations. "+
			"Estimated using file size of %.2f MB and historical migration patterns.", len(samples), size),
		SizeRange: &sizeRange,
	}, nil
}

// Fit returns the least-squares slope and intercept of duration against size.
// When every sample has the same size the line is flat at the mean duration.
func Fit(samples []estimation.Sample) (slope, intercept float64) {
	sizes, times := estimation.Split(samples)

	if slices.Min(sizes) == slices.Max(sizes) {
		return 0, stat.Mean(times, nil)
	}

	// gonum returns alpha (intercept) first and beta (slope) second
	intercept, slope = stat.LinearRegression(sizes, times, nil, false)
	return slope, intercept
}
