package estimation

import (
	"errors"
	"fmt"
)

const (
	// ParamFileSizeMB is the Param key for the size of the archive being estimated, in MB.
	ParamFileSizeMB = "file_size_mb"
	// ParamHistory is the Param key for the past migrations, a []Sample.
	ParamHistory = "history"
)

// ErrNotApplicable is returned by a Calculator whose preconditions are not met by the inputs.
// The Engine moves on to the next calculator.
var ErrNotApplicable = errors.New("calculator not applicable")

type ErrInvalidInput struct {
	error
}

func NewErrInvalidInput(format string, args ...any) *ErrInvalidInput {
	return &ErrInvalidInput{fmt.Errorf(format, args...)}
}

type Method string

const (
	MethodSizeBased        Method = "size_based"
	MethodHistoricalMedian Method = "historical_median"
	MethodRegression       Method = "regression"
)

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Calculator encapsulates one estimation strategy.
type Calculator interface {
	// Name returns the unique name of this calculator.
	Name() string
	// Keys returns the list of Param keys this calculator depends on.
	Keys() []string
	// Calculate runs the estimation, or returns ErrNotApplicable when the strategy does not fit the inputs.
	Calculate(params map[string]Param) (Estimation, error)
}

// Param represents an input for a Calculator
type Param struct {
	Key   string
	Value interface{}
}

// Sample is one past migration as seen by the calculators.
type Sample struct {
	SizeMB          float64
	DurationSeconds float64
}

type SizeRange struct {
	MinMB float64 `json:"min_mb" yaml:"min_mb"`
	MaxMB float64 `json:"max_mb" yaml:"max_mb"`
}

func (r SizeRange) String() string {
	return fmt.Sprintf("%.2f MB - %.2f MB", r.MinMB, r.MaxMB)
}

// Estimation is the result of a Calculator calculation
type Estimation struct {
	EstimatedSeconds float64    `json:"estimated_seconds"`
	Formatted        string     `json:"formatted"`
	Method           Method     `json:"method"`
	Confidence       Confidence `json:"confidence"`
	Complexity       Complexity `json:"complexity"`
	SampleSize       int        `json:"sample_size"`
	Explanation      string     `json:"explanation"`
	Note             string     `json:"note,omitempty"`
	SizeRange        *SizeRange `json:"size_range,omitempty"`
}
