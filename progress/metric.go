package progress

import (
	"math"

	"okrproject/models"
)

// maintainTolerance is the relative deviation from the setpoint still counted as on target.
const maintainTolerance = 0.05

// Compute converts a key result's current value into a completion percentage.
// It is total: degenerate or non-finite inputs resolve to a defined value in
// [0,100], and the result is rounded to a whole percentage point.
// Unknown metric types use increase semantics.
func Compute(metric models.MetricType, initial, target, current float64) float64 {
	initial, target, current = finite(initial), finite(target), finite(current)

	var p float64
	switch metric {
	case models.MetricDecrease:
		p = decreasing(initial, target, current)
	case models.MetricMaintain:
		p = maintaining(target, current)
	case models.MetricComplete:
		p = completing(target, current)
	default:
		p = increasing(initial, target, current)
	}
	return math.Round(clamp(p, 0, 100))
}

// Misconfigured reports metric setups that Compute pins to zero, so callers
// can surface them as data-quality warnings.
func Misconfigured(metric models.MetricType, initial, target float64) bool {
	initial, target = finite(initial), finite(target)
	switch metric {
	case models.MetricDecrease:
		return target > initial
	case models.MetricComplete:
		return target <= 0
	case models.MetricMaintain:
		return false
	default:
		return target < initial
	}
}

func increasing(initial, target, current float64) float64 {
	span := target - initial
	switch {
	case span == 0:
		if current >= target {
			return 100
		}
		return 0
	case span < 0:
		return 0
	}
	return (current - initial) / span * 100
}

func decreasing(initial, target, current float64) float64 {
	span := initial - target
	switch {
	case span == 0:
		if current <= target {
			return 100
		}
		return 0
	case span < 0:
		return 0
	}
	return (initial - current) / span * 100
}

func maintaining(target, current float64) float64 {
	var deviation float64
	if target == 0 {
		// no scale to divide by; the absolute deviation stands in for the relative one
		deviation = math.Abs(current)
	} else {
		deviation = math.Abs(current-target) / math.Abs(target)
	}
	if deviation <= maintainTolerance {
		return 100
	}
	return 100 - deviation*100
}

func completing(target, current float64) float64 {
	if target <= 0 {
		return 0
	}
	if current >= target {
		return 100
	}
	return current / target * 100
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
