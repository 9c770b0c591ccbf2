package valuation

import (
	"fmt"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
)

// Strategy turns normalized signals into a prediction score in roughly [-1.5, 1.5].
type Strategy interface {
	// Name returns the model type the strategy implements.
	Name() models.ModelType

	// Score weights the signals. Noisy strategies draw from r.
	Score(r random.Source, s Signals) float64
}

var strategies = map[models.ModelType]Strategy{}

func register(s Strategy) {
	strategies[s.Name()] = s
}

func init() {
	register(engagementFocused{})
	register(sentimentAnalysis{})
	register(growthTrajectory{})
	register(consistency{})
	register(revenueWeighted{})
	register(socialWeighted{})
	register(hybrid{})
}

// StrategyFor returns the strategy registered for m.
func StrategyFor(m models.ModelType) (Strategy, error) {
	s, ok := strategies[m]
	if !ok {
		return nil, fmt.Errorf("model type %q: %w", m, models.ErrInvalidArgument)
	}
	return s, nil
}

// ModelTypes lists every supported model type.
func ModelTypes() []models.ModelType {
	return []models.ModelType{
		models.ModelEngagementFocused,
		models.ModelSentimentAnalysis,
		models.ModelGrowthTrajectory,
		models.ModelConsistency,
		models.ModelRevenueWeighted,
		models.ModelSocialWeighted,
		models.ModelHybrid,
	}
}

type engagementFocused struct{}

func (engagementFocused) Name() models.ModelType { return models.ModelEngagementFocused }

func (engagementFocused) Score(r random.Source, s Signals) float64 {
	return 0.6*s.Engagement + 0.2*s.AI + 0.2*s.Growth + random.Uniform(r, -0.1, 0.1)
}

// sentimentAnalysis is deliberately the noisiest model.
type sentimentAnalysis struct{}

func (sentimentAnalysis) Name() models.ModelType { return models.ModelSentimentAnalysis }

func (sentimentAnalysis) Score(r random.Source, s Signals) float64 {
	return 0.5*s.Sentiment + 0.3*s.Engagement + 0.2*s.AI + random.Uniform(r, -0.3, 0.3)
}

type growthTrajectory struct{}

func (growthTrajectory) Name() models.ModelType { return models.ModelGrowthTrajectory }

func (growthTrajectory) Score(r random.Source, s Signals) float64 {
	return 0.6*s.Growth + 0.25*s.Engagement + 0.15*s.AI + random.Uniform(r, -0.1, 0.1)
}

type consistency struct{}

func (consistency) Name() models.ModelType { return models.ModelConsistency }

func (consistency) Score(r random.Source, s Signals) float64 {
	return 0.5*s.Consistency + 0.3*s.AI + 0.2*s.Revenue + random.Uniform(r, -0.05, 0.05)
}

type revenueWeighted struct{}

func (revenueWeighted) Name() models.ModelType { return models.ModelRevenueWeighted }

func (revenueWeighted) Score(r random.Source, s Signals) float64 {
	return 0.6*s.Revenue + 0.2*s.Engagement + 0.2*s.AI + random.Uniform(r, -0.1, 0.1)
}

type socialWeighted struct{}

func (socialWeighted) Name() models.ModelType { return models.ModelSocialWeighted }

func (socialWeighted) Score(r random.Source, s Signals) float64 {
	return 0.6*s.Social + 0.2*s.Sentiment + 0.2*s.Growth + random.Uniform(r, -0.1, 0.1)
}

// hybrid favours revenue and consistency for mature tokens, engagement and growth
// for young ones.
type hybrid struct{}

func (hybrid) Name() models.ModelType { return models.ModelHybrid }

func (hybrid) Score(r random.Source, s Signals) float64 {
	noise := random.Uniform(r, -0.1, 0.1)
	if s.Mature {
		return 0.35*s.Revenue + 0.35*s.Consistency + 0.15*s.Engagement + 0.15*s.Growth + noise
	}
	return 0.35*s.Engagement + 0.35*s.Growth + 0.15*s.Revenue + 0.15*s.AI + noise
}
