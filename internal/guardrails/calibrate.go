package guardrails

import "math"

// probFloor is added to aggregated probability mass before taking logs so a
// label that never appears in the top-K still produces a finite
// log-probability (avoids log(0) down to raw logprobs of at least -115).
const probFloor = 1e-50

// Calibrate converts two log-probabilities for mutually exclusive outcomes
// into plain probabilities that sum to 1, using a numerically stable two-way
// softmax: the max is subtracted before exponentiating.
func Calibrate(logSafe, logRisky float64) (pSafe, pRisky float64) {
	m := math.Max(logSafe, logRisky)
	expSafe := math.Exp(logSafe - m)
	expRisky := math.Exp(logRisky - m)
	denom := expSafe + expRisky
	return expSafe / denom, expRisky / denom
}
