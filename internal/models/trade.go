package models

import "time"

// Side is the aggressor side of an order or trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid reports whether s is a known side.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Trade represents an executed trade. Trades are immutable once created and are the
// unit of analysis for anomaly detection.
type Trade struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	InstrumentID string    `json:"instrument_id" gorm:"index;not null"`
	BuyerID      string    `json:"buyer_id" gorm:"not null"`
	SellerID     string    `json:"seller_id" gorm:"not null"`
	Price        float64   `json:"price"`
	Quantity     float64   `json:"quantity"`
	Side         Side      `json:"side"`
	Timestamp    time.Time `json:"timestamp" gorm:"index"`
}
