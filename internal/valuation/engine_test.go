package valuation

import (
	"testing"
	"time"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func creator() models.Instrument {
	return models.Instrument{
		ID:              "tok-1",
		Symbol:          "ALICE",
		CurrentPrice:    12,
		InitialPrice:    10,
		EngagementScore: 80,
		AIScore:         70,
		RevenueUSD:      750_000,
		LaunchedAt:      now.Add(-120 * 24 * time.Hour),
	}
}

var timeframes = []models.Timeframe{models.Timeframe24h, models.Timeframe7d, models.Timeframe30d, models.Timeframe90d}

func TestBucket(t *testing.T) {
	testCases := []struct {
		name      string
		score     float64
		direction models.Direction
		lo, hi    float64
	}{
		{"strong up", 0.9, models.DirectionUp, 0.15, 0.40},
		{"mild up", 0.5, models.DirectionUp, 0.05, 0.15},
		{"strong down", -1.2, models.DirectionDown, 0.15, 0.40},
		{"mild down", -0.4, models.DirectionDown, 0.05, 0.15},
		{"flat neutral", -0.05, models.DirectionNeutral, 0, 0.02},
		{"wide neutral", 0.2, models.DirectionNeutral, 0.02, 0.05},
		{"wide neutral negative", -0.25, models.DirectionNeutral, 0.02, 0.05},
	}
	r := random.New(10)
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 100; i++ {
				dir, pct := Bucket(r, tc.score)
				assert.Equal(t, tc.direction, dir)
				assert.GreaterOrEqual(t, pct, tc.lo)
				assert.LessOrEqual(t, pct, tc.hi)
			}
		})
	}
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 50.0, Confidence(0, 0))
	assert.Equal(t, 95.0, Confidence(4.5, 0))
	assert.Equal(t, 70.0, Confidence(-0.41, 0))
	assert.Equal(t, 80.0, Confidence(0.41, 10))
	assert.Equal(t, 95.0, Confidence(0.9, 10))
}

func TestPredict_ConfidenceAndTargetBounds(t *testing.T) {
	r := random.New(1234)
	for _, model := range ModelTypes() {
		for _, tf := range timeframes {
			for i := 0; i < 50; i++ {
				res, err := Predict(r, creator(), tf, model, now)
				require.NoError(t, err)

				assert.GreaterOrEqual(t, res.Confidence, 50.0)
				assert.LessOrEqual(t, res.Confidence, 95.0)
				assert.Greater(t, res.TargetPrice, 0.0)
				assert.GreaterOrEqual(t, len(res.Factors), 2)
				assert.LessOrEqual(t, len(res.Factors), 4)

				mult, _ := tf.Multiplier()
				move := (res.TargetPrice - 12) / 12
				switch res.Prediction.Direction {
				case models.DirectionUp:
					assert.GreaterOrEqual(t, move, 0.05*mult-1e-9)
				case models.DirectionDown:
					assert.LessOrEqual(t, move, -0.05*mult+1e-9)
				default:
					assert.LessOrEqual(t, move, 0.02*mult+1e-9)
					assert.GreaterOrEqual(t, move, -0.02*mult-1e-9)
				}
			}
		}
	}
}

func TestPredict_DeterministicForSeed(t *testing.T) {
	for _, model := range ModelTypes() {
		a, err := Predict(random.New(55), creator(), models.Timeframe30d, model, now)
		require.NoError(t, err)
		b, err := Predict(random.New(55), creator(), models.Timeframe30d, model, now)
		require.NoError(t, err)
		assert.Equal(t, a, b, "model %s", model)
	}
}

func TestPredict_RejectsUnknownInputs(t *testing.T) {
	_, err := Predict(random.New(1), creator(), "1y", models.ModelHybrid, now)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)

	_, err = Predict(random.New(1), creator(), models.Timeframe24h, "ASTROLOGY", now)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestPredict_RevenueBoost(t *testing.T) {
	// a boosted result is always at least 60 unless capped
	for seed := int64(1); seed <= 50; seed++ {
		res, err := Predict(random.New(seed), creator(), models.Timeframe24h, models.ModelRevenueWeighted, now)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Confidence, 60.0)
	}

	small := creator()
	small.RevenueUSD = 1000
	seenBelow60 := false
	for seed := int64(1); seed <= 200; seed++ {
		res, err := Predict(random.New(seed), small, models.Timeframe24h, models.ModelConsistency, now)
		require.NoError(t, err)
		if res.Confidence < 60 {
			seenBelow60 = true
		}
	}
	assert.True(t, seenBelow60, "without the boost low confidences must occur")
}

func TestPredict_FactorsAreDistinct(t *testing.T) {
	r := random.New(9)
	for i := 0; i < 200; i++ {
		res, err := Predict(r, creator(), models.Timeframe7d, models.ModelSocialWeighted, now)
		require.NoError(t, err)
		seen := map[string]bool{}
		for _, f := range res.Factors {
			assert.False(t, seen[f], "duplicate factor %q", f)
			assert.Contains(t, factorCatalogue, f)
			seen[f] = true
		}
	}
	assert.Len(t, factorCatalogue, 18)
}
