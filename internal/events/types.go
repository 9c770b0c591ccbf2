package events

import (
	"time"

	"creator-market-sim/internal/models"
)

// Type identifies an event stream on the bus.
type Type string

const (
	Connection      Type = "CONNECTION"
	PriceUpdate     Type = "PRICE_UPDATE"
	OrderBookUpdate Type = "ORDERBOOK_UPDATE"
	TradeExecuted   Type = "TRADE_EXECUTED"
)

// AllTypes lists every event type, in a stable order.
var AllTypes = []Type{Connection, PriceUpdate, OrderBookUpdate, TradeExecuted}

// Connection statuses.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Event is one delivery on the bus. Payload holds one of the *Payload types below,
// matching Type.
type Event struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// ConnectionPayload accompanies Connection events.
type ConnectionPayload struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// PricePayload accompanies PriceUpdate events.
type PricePayload struct {
	InstrumentID string    `json:"instrument_id"`
	OldPrice     float64   `json:"old_price"`
	NewPrice     float64   `json:"new_price"`
	Timestamp    time.Time `json:"timestamp"`
}

// OrderBookPayload accompanies OrderBookUpdate events.
// Bids are sorted by price descending, asks ascending.
type OrderBookPayload struct {
	InstrumentID string                  `json:"instrument_id"`
	Bids         []models.OrderBookLevel `json:"bids"`
	Asks         []models.OrderBookLevel `json:"asks"`
	Timestamp    time.Time               `json:"timestamp"`
}

// TradePayload accompanies TradeExecuted events.
type TradePayload struct {
	Trade models.Trade `json:"trade"`
}
