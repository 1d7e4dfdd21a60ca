package live

import "math"

// TradePlan is the per-leg target/stop price plan attached to an ENTER
// signal in the live driver's report, computed by inverting the spread
// equation for both legs. Grounded line-for-line on
// original_source/main.py's _calculate_trade_plan_details.
type TradePlan struct {
	S1Entry, S1Target, S1Stop float64
	S2Entry, S2Target, S2Stop float64
}

// computeTradePlan inverts the spread equation
//
//	log(p1) = z*sigma + mu + alpha + beta*log(p2)
//
// for p1 (holding log(p2) at its current value) to get s1's target/stop,
// and symmetrically for p2 (holding log(p1) at its current value) to get
// s2's target/stop, evaluated at the target and stop z-scores appropriate
// to the signal's direction (spec.md §4.F step 4).
func computeTradePlan(isLong bool, alpha, beta, mu, sigma, zExit, zStop, logP1Current, logP2Current, s1CurrentPrice, s2CurrentPrice float64) TradePlan {
	targetZ := zExit
	stopZ := -zStop
	if !isLong {
		targetZ = -zExit
		stopZ = zStop
	}

	logS1Target := targetZ*sigma + mu + alpha + beta*logP2Current
	logS1Stop := stopZ*sigma + mu + alpha + beta*logP2Current

	plan := TradePlan{
		S1Entry:  s1CurrentPrice,
		S1Target: math.Exp(logS1Target),
		S1Stop:   math.Exp(logS1Stop),
		S2Entry:  s2CurrentPrice,
	}

	if beta == 0 {
		plan.S2Target, plan.S2Stop = s2CurrentPrice, s2CurrentPrice
		return plan
	}
	logS2Target := (logP1Current - mu - alpha - targetZ*sigma) / beta
	logS2Stop := (logP1Current - mu - alpha - stopZ*sigma) / beta
	plan.S2Target = math.Exp(logS2Target)
	plan.S2Stop = math.Exp(logS2Stop)
	return plan
}
