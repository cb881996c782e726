package calculators

import (
	"fmt"
	"math"

	"github.com/wm2snap/migrator/internal/estimation"
)

const (
	// DefaultBaseSeconds is the minimum processing time of any migration before the complexity factor.
	DefaultBaseSeconds = 60.0
	// DefaultSecondsPerMB is the transfer and analysis time added per MB of archive.
	DefaultSecondsPerMB = 30.0
)

func getFloat(p estimation.Param) (float64, error) {
	switch v := p.Value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0.0, fmt.Errorf("param %s is not a number (type: %T)", p.Key, p.Value)
	}
}

// fileSize extracts and validates the size of the archive being estimated.
func fileSize(params map[string]estimation.Param) (float64, error) {
	p, ok := params[estimation.ParamFileSizeMB]
	if !ok {
		return 0, fmt.Errorf("missing %s", estimation.ParamFileSizeMB)
	}

	size, err := getFloat(p)
	if err != nil {
		return 0, err
	}

	if math.IsNaN(size) || math.IsInf(size, 0) {
		return 0, estimation.NewErrInvalidInput("%s must be a finite number, got %v", estimation.ParamFileSizeMB, size)
	}
	if size < 0 {
		return 0, estimation.NewErrInvalidInput("%s must be non-negative, got %.2f", estimation.ParamFileSizeMB, size)
	}
	return size, nil
}

// history returns the past migrations. A missing history param means no history.
func history(params map[string]estimation.Param) ([]estimation.Sample, error) {
	p, ok := params[estimation.ParamHistory]
	if !ok || p.Value == nil {
		return nil, nil
	}

	samples, ok := p.Value.([]estimation.Sample)
	if !ok {
		return nil, fmt.Errorf("param %s is not a sample list (type: %T)", p.Key, p.Value)
	}
	return samples, nil
}

// sizeBasedSeconds is the history-free formula: base time scaled by complexity plus a per-MB term.
func sizeBasedSeconds(size, baseSeconds, secondsPerMB float64) float64 {
	return baseSeconds*estimation.ComplexityFactor(size) + size*secondsPerMB
}
