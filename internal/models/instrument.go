package models

import "time"

// Instrument represents a tradable creator token.
// CurrentPrice is the only field the simulation mutates after creation.
type Instrument struct {
	ID                 string    `json:"id"`
	Symbol             string    `json:"symbol"`
	CurrentPrice       float64   `json:"current_price"`
	InitialPrice       float64   `json:"initial_price"`
	TotalSupply        float64   `json:"total_supply"`
	AvailableSupply    float64   `json:"available_supply"`
	EngagementScore    float64   `json:"engagement_score"` // 0-100
	AIScore            float64   `json:"ai_score"`         // 0-100
	RevenueUSD         float64   `json:"revenue_usd,omitempty"`
	AverageDailyVolume float64   `json:"average_daily_volume,omitempty"`
	LaunchedAt         time.Time `json:"launched_at"`
}

// HasRevenue reports whether the instrument carries revenue data.
func (i Instrument) HasRevenue() bool {
	return i.RevenueUSD > 0
}

// AgeAt returns how long the instrument has been live at the given moment.
// A zero LaunchedAt yields a zero age.
func (i Instrument) AgeAt(t time.Time) time.Duration {
	if i.LaunchedAt.IsZero() || t.Before(i.LaunchedAt) {
		return 0
	}
	return t.Sub(i.LaunchedAt)
}
