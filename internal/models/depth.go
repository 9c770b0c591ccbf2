package models

// Spread is the best bid/ask around the current price.
type Spread struct {
	Bid float64 `json:"bid"`
	Ask float64 `json:"ask"`
}

// MarketDepth describes buy/sell interest around the current price.
type MarketDepth struct {
	OrderConcentration float64    `json:"order_concentration"`
	BuyWallStrength    float64    `json:"buy_wall_strength"`
	SellWallStrength   float64    `json:"sell_wall_strength"`
	SupportLevels      [3]float64 `json:"support_levels"`
	ResistanceLevels   [3]float64 `json:"resistance_levels"`
	CurrentSpread      Spread     `json:"current_spread"`
}

// OrderBookLevel is one price level of a synthetic order book.
type OrderBookLevel struct {
	Price    float64 `json:"price"`
	Quantity float64 `json:"quantity"`
}
