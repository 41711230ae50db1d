package progress

import (
	"fmt"
	"math"
	"sort"
)

const maxWeightCents = 100 * 100

type WeightConfig struct {
	// DefaultWeight is assigned to a new key result created without an explicit weight.
	DefaultWeight float64
}

var DefaultWeightConfig = WeightConfig{DefaultWeight: 100}

// WeightedItem is one sibling in a weight set: a key result under an
// objective or a child objective under its parent.
type WeightedItem struct {
	ID     string
	Weight float64
	Locked bool
}

const (
	ViolationNegative       = "negative_weight"
	ViolationAboveMax       = "weight_above_max"
	ViolationLockedOverflow = "locked_sum_exceeds_100"
)

type WeightViolation struct {
	ItemID  string `json:"item_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidateWeights lists every problem in a weight set. An empty result means
// the set may be persisted. Weights need not sum to 100.
func ValidateWeights(items []WeightedItem) []WeightViolation {
	var violations []WeightViolation
	var locked float64
	for _, it := range items {
		w := finite(it.Weight)
		if w < 0 {
			violations = append(violations, WeightViolation{
				ItemID:  it.ID,
				Code:    ViolationNegative,
				Message: fmt.Sprintf("weight %.2f is negative", w),
			})
		}
		if w > 100 {
			violations = append(violations, WeightViolation{
				ItemID:  it.ID,
				Code:    ViolationAboveMax,
				Message: fmt.Sprintf("weight %.2f exceeds 100", w),
			})
		}
		if it.Locked && w > 0 {
			locked += w
		}
	}
	if locked > 100 {
		violations = append(violations, WeightViolation{
			Code:    ViolationLockedOverflow,
			Message: fmt.Sprintf("locked weights sum to %.2f", locked),
		})
	}
	return violations
}

// NormalizeWeights redistributes the unlocked weights so they sum to what the
// locked weights leave of 100 (floored at 0). Unlocked weights keep their
// proportions; if they are all zero the remainder is split evenly. Locked
// weights are returned untouched. Unlocked results are rounded to hundredths,
// which makes the function idempotent.
func NormalizeWeights(items []WeightedItem) []WeightedItem {
	out := make([]WeightedItem, len(items))
	copy(out, items)

	var lockedCents int64
	var unlocked []int
	for i, it := range out {
		if it.Locked {
			if c := toCents(it.Weight); c > 0 {
				lockedCents += c
			}
			continue
		}
		unlocked = append(unlocked, i)
	}
	if len(unlocked) == 0 {
		return out
	}

	remainder := maxWeightCents - lockedCents
	if remainder < 0 {
		remainder = 0
	}

	cents := make([]int64, len(unlocked))
	var sum int64
	for k, i := range unlocked {
		if c := toCents(out[i].Weight); c > 0 {
			cents[k] = c
			sum += c
		}
	}

	switch {
	case sum == remainder:
	case sum == 0:
		n := int64(len(unlocked))
		for k := range cents {
			cents[k] = remainder / n
			if int64(k) < remainder%n {
				cents[k]++
			}
		}
	default:
		cents = apportion(cents, sum, remainder)
	}

	for k, i := range unlocked {
		out[i].Weight = float64(cents[k]) / 100
	}
	return out
}

// apportion scales shares so they sum to total, using largest remainders to
// place the cents lost to flooring.
func apportion(shares []int64, sum, total int64) []int64 {
	type frac struct {
		idx int
		rem int64
	}
	out := make([]int64, len(shares))
	fracs := make([]frac, len(shares))
	var assigned int64
	for i, s := range shares {
		scaled := s * total
		out[i] = scaled / sum
		fracs[i] = frac{idx: i, rem: scaled % sum}
		assigned += out[i]
	}
	sort.SliceStable(fracs, func(a, b int) bool { return fracs[a].rem > fracs[b].rem })
	for k := 0; assigned < total && k < len(fracs); k++ {
		out[fracs[k].idx]++
		assigned++
	}
	return out
}

func toCents(w float64) int64 {
	return int64(math.Round(finite(w) * 100))
}
