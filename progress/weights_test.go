package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sumWeights(items []WeightedItem) float64 {
	var s float64
	for _, it := range items {
		s += it.Weight
	}
	return s
}

func TestNormalizeWeights(t *testing.T) {
	tests := []struct {
		name  string
		items []WeightedItem
		want  []float64
	}{
		{
			name:  "proportional to remainder",
			items: []WeightedItem{{ID: "a", Weight: 40, Locked: true}, {ID: "b", Weight: 10}, {ID: "c", Weight: 20}},
			want:  []float64{40, 20, 40},
		},
		{
			name:  "even split when unlocked are zero",
			items: []WeightedItem{{ID: "a", Weight: 0}, {ID: "b", Weight: 0}, {ID: "c", Weight: 0}},
			want:  []float64{33.34, 33.33, 33.33},
		},
		{
			name:  "locked overflow leaves nothing",
			items: []WeightedItem{{ID: "a", Weight: 80, Locked: true}, {ID: "b", Weight: 30, Locked: true}, {ID: "c", Weight: 50}},
			want:  []float64{80, 30, 0},
		},
		{
			name:  "negative unlocked floored",
			items: []WeightedItem{{ID: "a", Weight: -10}, {ID: "b", Weight: 50}},
			want:  []float64{0, 100},
		},
		{
			name:  "all locked untouched",
			items: []WeightedItem{{ID: "a", Weight: 10, Locked: true}, {ID: "b", Weight: 15, Locked: true}},
			want:  []float64{10, 15},
		},
		{
			name:  "thirds keep exact cents",
			items: []WeightedItem{{ID: "a", Weight: 1}, {ID: "b", Weight: 1}, {ID: "c", Weight: 1}},
			want:  []float64{33.34, 33.33, 33.33},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeWeights(tt.items)
			require.Len(t, got, len(tt.want))
			for i, w := range tt.want {
				assert.InDelta(t, w, got[i].Weight, 1e-9, "item %s", got[i].ID)
				assert.Equal(t, tt.items[i].Locked, got[i].Locked)
			}
		})
	}
}

func TestNormalizeWeightsIdempotent(t *testing.T) {
	sets := [][]WeightedItem{
		{{ID: "a", Weight: 33.333}, {ID: "b", Weight: 12.5}, {ID: "c", Weight: 7, Locked: true}},
		{{ID: "a", Weight: 0}, {ID: "b", Weight: 0}, {ID: "c", Weight: 0}, {ID: "d", Weight: 0}, {ID: "e", Weight: 0}, {ID: "f", Weight: 0}, {ID: "g", Weight: 0}},
		{{ID: "a", Weight: 99, Locked: true}, {ID: "b", Weight: 3}, {ID: "c", Weight: 5}},
		{{ID: "a", Weight: 70}, {ID: "b", Weight: 70}, {ID: "c", Weight: 70}},
	}
	for _, items := range sets {
		once := NormalizeWeights(items)
		twice := NormalizeWeights(once)
		assert.Equal(t, once, twice)

		var unlocked float64
		var locked float64
		for i, it := range once {
			if it.Locked {
				assert.Equal(t, items[i].Weight, it.Weight)
				locked += it.Weight
			} else {
				unlocked += it.Weight
			}
		}
		assert.InDelta(t, 100-locked, unlocked, 1e-9)
	}
}

func TestNormalizeWeightsDoesNotMutateInput(t *testing.T) {
	items := []WeightedItem{{ID: "a", Weight: 10}, {ID: "b", Weight: 30}}
	NormalizeWeights(items)
	assert.Equal(t, 10.0, items[0].Weight)
	assert.Equal(t, 30.0, items[1].Weight)
	assert.Equal(t, 40.0, sumWeights(items))
}

func TestValidateWeights(t *testing.T) {
	assert.Empty(t, ValidateWeights([]WeightedItem{{ID: "a", Weight: 60}, {ID: "b", Weight: 90}}))

	violations := ValidateWeights([]WeightedItem{
		{ID: "a", Weight: -1},
		{ID: "b", Weight: 101},
		{ID: "c", Weight: 70, Locked: true},
		{ID: "d", Weight: 40, Locked: true},
	})
	codes := make([]string, 0, len(violations))
	for _, v := range violations {
		codes = append(codes, v.Code)
	}
	assert.ElementsMatch(t, []string{ViolationNegative, ViolationAboveMax, ViolationLockedOverflow}, codes)
	assert.Equal(t, "a", violations[0].ItemID)
}
