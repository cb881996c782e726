package estimation

import (
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Statistics aggregates the migration history.
type Statistics struct {
	TotalMigrations int     `json:"total_migrations"`
	AverageTime     float64 `json:"average_time"`
	AverageSize     float64 `json:"average_size"`
	MedianTime      float64 `json:"median_time"`
	MedianSize      float64 `json:"median_size"`
	MinTime         float64 `json:"min_time"`
	MaxTime         float64 `json:"max_time"`
	MinSize         float64 `json:"min_size"`
	MaxSize         float64 `json:"max_size"`
}

// ComputeStatistics returns the zero Statistics for an empty history.
func ComputeStatistics(samples []Sample) Statistics {
	if len(samples) == 0 {
		return Statistics{}
	}

	sizes, times := Split(samples)

	return Statistics{
		TotalMigrations: len(samples),
		AverageTime:     stat.Mean(times, nil),
		AverageSize:     stat.Mean(sizes, nil),
		MedianTime:      Median(times),
		MedianSize:      Median(sizes),
		MinTime:         slices.Min(times),
		MaxTime:         slices.Max(times),
		MinSize:         slices.Min(sizes),
		MaxSize:         slices.Max(sizes),
	}
}

// Split returns the sizes and durations of samples as two parallel slices.
func Split(samples []Sample) (sizes []float64, times []float64) {
	sizes = make([]float64, 0, len(samples))
	times = make([]float64, 0, len(samples))
	for _, s := range samples {
		sizes = append(sizes, s.SizeMB)
		times = append(times, s.DurationSeconds)
	}
	return sizes, times
}

// Median returns the middle value of values, averaging the two middle values for an even count.
// values is not modified. Median of an empty slice is 0.
func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// RangeOf returns the min and max size across samples. samples must not be empty.
func RangeOf(samples []Sample) SizeRange {
	sizes, _ := Split(samples)
	return SizeRange{MinMB: slices.Min(sizes), MaxMB: slices.Max(sizes)}
}
