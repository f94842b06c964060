package engine

import (
	"math"

	"github.com/lazypower/forgeone/internal/model"
)

// ComputeFriction returns the share of moments that ended stuck, rounded to
// two decimals. ok is false for an empty set: the caller keeps the thread's
// previous score.
func ComputeFriction(moments []model.WorkMoment) (score float64, ok bool) {
	if len(moments) == 0 {
		return 0, false
	}
	stuck := 0
	for _, m := range moments {
		if m.StateAfter == model.StateStuck {
			stuck++
		}
	}
	return roundScore(float64(stuck) / float64(len(moments))), true
}

func roundScore(x float64) float64 {
	return math.Round(x*100) / 100
}
