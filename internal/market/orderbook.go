package market

import (
	"math"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
)

const (
	minBookLevels = 3
	maxBookLevels = 10
	minLevelStep  = 0.001
	maxLevelStep  = 0.005
	minLevelQty   = 1
	maxLevelQty   = 1000
)

// SynthesizeBook builds a random order book around price. Bids are strictly descending
// and asks strictly ascending; each level moves away from price by a cumulative random step.
func SynthesizeBook(r random.Source, price float64) (bids, asks []models.OrderBookLevel) {
	bids = make([]models.OrderBookLevel, random.IntBetween(r, minBookLevels, maxBookLevels))
	offset := 0.0
	for i := range bids {
		offset += price * random.Uniform(r, minLevelStep, maxLevelStep)
		bids[i] = models.OrderBookLevel{Price: price - offset, Quantity: levelQuantity(r)}
	}

	asks = make([]models.OrderBookLevel, random.IntBetween(r, minBookLevels, maxBookLevels))
	offset = 0.0
	for i := range asks {
		offset += price * random.Uniform(r, minLevelStep, maxLevelStep)
		asks[i] = models.OrderBookLevel{Price: price + offset, Quantity: levelQuantity(r)}
	}
	return bids, asks
}

func levelQuantity(r random.Source) float64 {
	return math.Floor(random.Uniform(r, minLevelQty, maxLevelQty+1))
}
