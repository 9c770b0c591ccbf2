package market

import (
	"math"
	"sort"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
)

const (
	baseSpreadPct        = 0.01
	revenueSpreadPivot   = 100000.0
	minEngagementFactor  = 0.5
	maxEngagementFactor  = 1.5
	minRevenueAdjustment = 0.5
	maxRevenueAdjustment = 1.0
)

// ComputeDepth derives support/resistance levels, wall strengths and the bid/ask spread
// of an instrument from its current price and quality scores.
//
// Draw order from r is fixed (support, resistance, walls, spread) so a seeded source
// reproduces the same model. OrderConcentration is not clamped here.
func ComputeDepth(r random.Source, inst models.Instrument) models.MarketDepth {
	price := inst.CurrentPrice
	var depth models.MarketDepth

	for i := range depth.SupportLevels {
		depth.SupportLevels[i] = price * random.Uniform(r, 0.7, 0.9)
	}
	sort.Float64s(depth.SupportLevels[:])

	for i := range depth.ResistanceLevels {
		depth.ResistanceLevels[i] = price * random.Uniform(r, 1.1, 1.4)
	}
	sort.Float64s(depth.ResistanceLevels[:])

	depth.OrderConcentration = 0.3 + inst.EngagementScore/200
	depth.BuyWallStrength = 0.2 + inst.AIScore/150 + random.Uniform(r, 0, 0.3)
	depth.SellWallStrength = 0.1 + (100-inst.EngagementScore)/200 + random.Uniform(r, 0, 0.3)

	depth.CurrentSpread = ComputeSpread(r, inst)
	return depth
}

// ComputeSpread returns the bid/ask around the current price. Higher engagement and
// higher revenue both tighten the spread.
func ComputeSpread(r random.Source, inst models.Instrument) models.Spread {
	price := inst.CurrentPrice
	engagementFactor := clamp(minEngagementFactor, maxEngagementFactor, (100-inst.EngagementScore)/50)

	revenueAdjustment := 1.0
	if inst.HasRevenue() {
		revenueAdjustment = clamp(minRevenueAdjustment, maxRevenueAdjustment, revenueSpreadPivot/inst.RevenueUSD)
	}

	spreadPct := baseSpreadPct * engagementFactor * revenueAdjustment * random.Uniform(r, 0.9, 1.1)
	spreadAmount := price * spreadPct
	return models.Spread{
		Bid: price - spreadAmount/2,
		Ask: price + spreadAmount/2,
	}
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
