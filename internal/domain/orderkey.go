package domain

import "math"

// Order key spacing. New keys are seeded at orderSeed and edge inserts
// step by orderStep, leaving room for midpoint bisection between moves.
const (
	orderSeed = 100.0
	orderStep = 100.0
)

// AllocateOrder computes the order key for inserting an instance at
// targetIndex among siblings. Siblings must share a band and be sorted
// ascending by Order.
//
// The second return reports key exhaustion: the gap at the insertion
// point collapsed to <= 1 and a renormalized fallback key was returned.
// A single exhausted allocation is fine; callers that hit it should
// renormalize the band (see RenormalizeOrders) before the next move.
func AllocateOrder(targetIndex int, siblings []*TaskInstance) (float64, bool) {
	if len(siblings) == 0 {
		return orderSeed, false
	}
	if targetIndex <= 0 {
		return siblings[0].Order - orderStep, false
	}
	if targetIndex >= len(siblings) {
		return siblings[len(siblings)-1].Order + orderStep, false
	}

	prev := siblings[targetIndex-1].Order
	next := siblings[targetIndex].Order
	if next-prev > 1 {
		return math.Floor((prev + next) / 2), false
	}

	// Keys exhausted by repeated insertions at the same point.
	return float64(targetIndex)*orderStep + orderStep/2, true
}

// RenormalizeOrders rewrites a band's keys with fresh, evenly spaced
// values (100, 200, ...), preserving the current order. Siblings must be
// sorted ascending by Order.
func RenormalizeOrders(siblings []*TaskInstance) {
	for i, inst := range siblings {
		inst.Order = orderSeed + float64(i)*orderStep
	}
}
