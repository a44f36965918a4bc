package consistency

// WarningLimits holds the thresholds the checker compares against.
type WarningLimits struct {
	// MinProbability is the lowest acceptable raw link or division
	// probability.
	MinProbability float64 `yaml:"min_probability"`

	// MinMarginalProbability is the lowest acceptable marginal link
	// probability, the confidence that accounts for competing candidates.
	MinMarginalProbability float64 `yaml:"min_marginal_probability"`

	// MinTimeBetweenDivisionsH is the shortest credible cell cycle, in
	// hours.
	MinTimeBetweenDivisionsH float64 `yaml:"min_time_between_divisions_h"`

	// MaxDistanceMovedUmPerMin caps cell speed between consecutive time
	// points, in micrometers per minute.
	MaxDistanceMovedUmPerMin float64 `yaml:"max_distance_moved_um_per_min"`

	// ExcludedErrors lists codes that are suppressed and reported as no
	// error.
	ExcludedErrors []ErrorCode `yaml:"excluded_errors"`
}

// DefaultWarningLimits returns the standard thresholds.
func DefaultWarningLimits() WarningLimits {
	return WarningLimits{
		MinProbability:           0.1,
		MinMarginalProbability:   0.25,
		MinTimeBetweenDivisionsH: 10,
		MaxDistanceMovedUmPerMin: 2.0,
	}
}

func (l WarningLimits) isExcluded(code ErrorCode) bool {
	for _, excluded := range l.ExcludedErrors {
		if excluded == code {
			return true
		}
	}
	return false
}
