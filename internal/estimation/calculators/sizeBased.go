package calculators

import (
	"fmt"

	"github.com/wm2snap/migrator/internal/estimation"
)

const conservativeNote = "This is a conservative estimate. Actual migration time may vary."

// Compile-time assertion that SizeBased implements the Calculator interface.
var _ estimation.Calculator = (*SizeBased)(nil)

// SizeBased estimates from the archive size alone.
//
// The default variant only applies when there is no history at all and is reported with
// medium confidence. The conservative variant applies to any inputs and is meant to be
// registered last, as the fallback when the history is too thin for the other calculators.
type SizeBased struct {
	name         string
	baseSeconds  float64
	secondsPerMB float64
	conservative bool
}

// SizeBasedOption is a functional option for configuring a SizeBased calculator.
type SizeBasedOption func(*SizeBased)

// WithBaseSeconds overrides the base processing time. Non-positive values are ignored.
func WithBaseSeconds(seconds float64) SizeBasedOption {
	return func(c *SizeBased) {
		if seconds > 0 {
			c.baseSeconds = seconds
		}
	}
}

// WithSecondsPerMB overrides the per-MB term. Negative values are ignored.
func WithSecondsPerMB(seconds float64) SizeBasedOption {
	return func(c *SizeBased) {
		if seconds >= 0 {
			c.secondsPerMB = seconds
		}
	}
}

func NewSizeBased(opts ...SizeBasedOption) *SizeBased {
	return newSizeBased("size_based", false, opts)
}

func NewConservativeSizeBased(opts ...SizeBasedOption) *SizeBased {
	return newSizeBased("conservative_size_based", true, opts)
}

func newSizeBased(name string, conservative bool, opts []SizeBasedOption) *SizeBased {
	res := SizeBased{
		name:         name,
		baseSeconds:  DefaultBaseSeconds,
		secondsPerMB: DefaultSecondsPerMB,
		conservative: conservative,
	}

	for _, opt := range opts {
		opt(&res)
	}

	return &res
}

func (c *SizeBased) Name() string {
	return c.name
}

func (c *SizeBased) Keys() []string {
	return []string{estimation.ParamFileSizeMB, estimation.ParamHistory}
}

func (c *SizeBased) Calculate(params map[string]estimation.Param) (estimation.Estimation, error) {
	size, err := fileSize(params)
	if err != nil {
		return estimation.Estimation{}, err
	}

	samples, err := history(params)
	if err != nil {
		return estimation.Estimation{}, err
	}

	if !c.conservative && len(samples) > 0 {
		return estimation.Estimation{}, estimation.ErrNotApplicable
	}

	res := estimation.Estimation{
		EstimatedSeconds: sizeBasedSeconds(size, c.baseSeconds, c.secondsPerMB),
		Method:           estimation.MethodSizeBased,
		Complexity:       estimation.ComplexityOf(size),
		SampleSize:       len(samples),
	}

	if c.conservative {
		res.Confidence = estimation.ConfidenceLow
		res.Explanation = fmt.Sprintf("Limited data for files of size %.2f MB. "+
			"Estimate based on file size and general processing patterns.", size)
		res.Note = conservativeNote
		return res, nil
	}

	res.Confidence = estimation.ConfidenceMedium
	res.Explanation = fmt.Sprintf("Based on file size of %.2f MB. "+
		"Larger files typically take longer to process due to more content to analyze and migrate.", size)
	return res, nil
}
