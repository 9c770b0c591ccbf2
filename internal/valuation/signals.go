package valuation

import (
	"math"
	"time"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
)

// matureAge is the age past which the hybrid model favours revenue and consistency.
const matureAge = 90 * 24 * time.Hour

// Signals are the normalized inputs of the weighting strategies, each roughly in [-1, 1].
type Signals struct {
	Engagement  float64
	AI          float64
	Growth      float64
	Revenue     float64
	Sentiment   float64
	Consistency float64
	Social      float64
	Mature      bool
}

// ExtractSignals normalizes an instrument snapshot. Sentiment has no source in the
// snapshot and is drawn from r.
func ExtractSignals(r random.Source, inst models.Instrument, asOf time.Time) Signals {
	growth := 0.0
	if inst.InitialPrice > 0 {
		growth = clamp(-1, 1, (inst.CurrentPrice-inst.InitialPrice)/inst.InitialPrice)
	}

	// 100k USD is neutral; each decade above or below moves half a unit
	revenue := -0.5
	if inst.HasRevenue() {
		revenue = clamp(-1, 1, (math.Log10(inst.RevenueUSD)-5)/2)
	}

	engagement := (inst.EngagementScore - 50) / 50
	ai := (inst.AIScore - 50) / 50

	return Signals{
		Engagement:  engagement,
		AI:          ai,
		Growth:      growth,
		Revenue:     revenue,
		Sentiment:   random.Uniform(r, -1, 1),
		Consistency: 1 - 2*math.Abs(growth),
		Social:      0.6*engagement + 0.4*ai,
		Mature:      inst.AgeAt(asOf) > matureAge,
	}
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
