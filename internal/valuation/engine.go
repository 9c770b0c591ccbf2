// Package valuation implements the multi-factor price prediction model.
package valuation

import (
	"math"
	"time"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
)

const (
	baseConfidence     = 50
	maxConfidence      = 95
	revenueBoost       = 10
	revenueBoostMinUSD = 500000
)

// Predict scores an instrument with the model's weighting strategy, scales the score by
// the timeframe and maps it to a direction, target price and confidence.
//
// Draws from r happen in a fixed order, so equal seeds give equal results.
func Predict(r random.Source, inst models.Instrument, tf models.Timeframe, model models.ModelType, asOf time.Time) (models.ValuationResult, error) {
	multiplier, err := tf.Multiplier()
	if err != nil {
		return models.ValuationResult{}, err
	}
	strategy, err := StrategyFor(model)
	if err != nil {
		return models.ValuationResult{}, err
	}

	signals := ExtractSignals(r, inst, asOf)
	score := strategy.Score(r, signals) * multiplier

	direction, pct := Bucket(r, score)
	change := PriceChange(r, direction) * multiplier

	boost := 0.0
	if model == models.ModelRevenueWeighted && inst.RevenueUSD > revenueBoostMinUSD {
		boost = revenueBoost
	}

	return models.ValuationResult{
		Prediction:  models.Prediction{Direction: direction, Percentage: pct},
		Confidence:  Confidence(score, boost),
		TargetPrice: inst.CurrentPrice * (1 + change),
		Factors:     pickFactors(r),
	}, nil
}

// Bucket maps a prediction score to a direction and draws the move magnitude from the
// bucket's fixed range:
//
//	score >  0.8        up       [0.15, 0.40)
//	score >  0.3        up       [0.05, 0.15)
//	score < -0.8        down     [0.15, 0.40)
//	score < -0.3        down     [0.05, 0.15)
//	|score| < 0.15      neutral  [0.00, 0.02)
//	otherwise           neutral  [0.02, 0.05)
func Bucket(r random.Source, score float64) (models.Direction, float64) {
	switch {
	case score > 0.8:
		return models.DirectionUp, random.Uniform(r, 0.15, 0.40)
	case score > 0.3:
		return models.DirectionUp, random.Uniform(r, 0.05, 0.15)
	case score < -0.8:
		return models.DirectionDown, random.Uniform(r, 0.15, 0.40)
	case score < -0.3:
		return models.DirectionDown, random.Uniform(r, 0.05, 0.15)
	case math.Abs(score) < 0.15:
		return models.DirectionNeutral, random.Uniform(r, 0, 0.02)
	default:
		return models.DirectionNeutral, random.Uniform(r, 0.02, 0.05)
	}
}

// PriceChange draws the relative target-price move for a direction, independently of
// the bucket percentage.
func PriceChange(r random.Source, d models.Direction) float64 {
	switch d {
	case models.DirectionUp:
		return random.Uniform(r, 0.05, 0.20)
	case models.DirectionDown:
		return -random.Uniform(r, 0.05, 0.20)
	default:
		return random.Uniform(r, -0.02, 0.02)
	}
}

// Confidence is 50 plus half the score magnitude in points, plus boost, capped at 95.
func Confidence(score, boost float64) float64 {
	return math.Min(maxConfidence, baseConfidence+math.Floor(math.Abs(score)*50)+boost)
}
