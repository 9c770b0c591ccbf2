package models

import (
	"fmt"
	"time"
)

// Direction is the predicted price movement.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// Timeframe is the prediction horizon.
type Timeframe string

const (
	Timeframe24h Timeframe = "24h"
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
	Timeframe90d Timeframe = "90d"
)

var timeframeMultipliers = map[Timeframe]float64{
	Timeframe24h: 1,
	Timeframe7d:  1.5,
	Timeframe30d: 2.2,
	Timeframe90d: 3,
}

// Multiplier returns the score scaling applied for the timeframe.
func (t Timeframe) Multiplier() (float64, error) {
	m, ok := timeframeMultipliers[t]
	if !ok {
		return 0, fmt.Errorf("timeframe %q: %w", t, ErrInvalidArgument)
	}
	return m, nil
}

// Duration returns the wall-clock length of the timeframe.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case Timeframe7d:
		return 7 * 24 * time.Hour
	case Timeframe30d:
		return 30 * 24 * time.Hour
	case Timeframe90d:
		return 90 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// ModelType selects the weighting strategy of the valuation engine.
type ModelType string

const (
	ModelEngagementFocused ModelType = "ENGAGEMENT_FOCUSED"
	ModelSentimentAnalysis ModelType = "SENTIMENT_ANALYSIS"
	ModelGrowthTrajectory  ModelType = "GROWTH_TRAJECTORY"
	ModelConsistency       ModelType = "CONSISTENCY"
	ModelRevenueWeighted   ModelType = "REVENUE_WEIGHTED"
	ModelSocialWeighted    ModelType = "SOCIAL_WEIGHTED"
	ModelHybrid            ModelType = "HYBRID"
)

// Prediction is the direction and magnitude of an expected move.
type Prediction struct {
	Direction  Direction `json:"direction"`
	Percentage float64   `json:"percentage"`
}

// ValuationResult is the output of one prediction request.
type ValuationResult struct {
	Prediction  Prediction `json:"prediction"`
	Confidence  float64    `json:"confidence"` // 0-100
	TargetPrice float64    `json:"target_price"`
	Factors     []string   `json:"factors"`
}
