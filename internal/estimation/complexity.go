package estimation

// ComplexityFactor is the multiplier applied to every estimate. It depends on the archive size only
// and is a non-decreasing step function: 1.0, 1.5, 2.0 and 2.5.
func ComplexityFactor(fileSizeMB float64) float64 {
	switch {
	case fileSizeMB < 0.1:
		return 1.0
	case fileSizeMB < 1:
		return 1.5
	case fileSizeMB < 10:
		return 2.0
	default:
		return 2.5
	}
}

func ComplexityOf(fileSizeMB float64) Complexity {
	switch {
	case fileSizeMB < 1:
		return ComplexityLow
	case fileSizeMB < 10:
		return ComplexityMedium
	default:
		return ComplexityHigh
	}
}
