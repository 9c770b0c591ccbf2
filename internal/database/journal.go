package database

import (
	"context"
	"errors"
	"fmt"

	"creator-market-sim/internal/events"
	"creator-market-sim/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Journal is the trade tape and order book of record. It supplies the rolling trade
// window for anomaly detection.
type Journal struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewJournal wraps an open, migrated database.
func NewJournal(db *gorm.DB, logger *zap.Logger) *Journal {
	return &Journal{db: db, logger: logger.Named("journal")}
}

// Attach subscribes the journal to executed trades on the bus.
func (j *Journal) Attach(bus *events.Bus) events.Subscription {
	return bus.On(events.TradeExecuted, func(ev events.Event) {
		p, ok := ev.Payload.(events.TradePayload)
		if !ok {
			j.logger.Warn("Unexpected trade payload", zap.String("type", fmt.Sprintf("%T", ev.Payload)))
			return
		}
		// RecordTrade logs its own failures
		j.RecordTrade(context.Background(), p.Trade)
	})
}

// RecordTrade appends a trade to the tape. Re-recording a known id is a no-op.
func (j *Journal) RecordTrade(ctx context.Context, trade models.Trade) error {
	err := j.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&trade).Error
	if err != nil {
		j.logger.Error("Failed to record trade", zap.String("trade_id", trade.ID), zap.Error(err))
		return fmt.Errorf("failed to record trade %s: %w", trade.ID, err)
	}
	return nil
}

// RecentTrades returns up to limit of the newest trades in chronological order.
// An empty instrumentID spans every instrument; a non-positive limit returns nothing.
func (j *Journal) RecentTrades(ctx context.Context, instrumentID string, limit int) ([]models.Trade, error) {
	if limit <= 0 {
		return []models.Trade{}, nil
	}

	q := j.db.WithContext(ctx).Order("timestamp desc").Order("id desc").Limit(limit)
	if instrumentID != "" {
		q = q.Where("instrument_id = ?", instrumentID)
	}

	var trades []models.Trade
	if err := q.Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}

	for i, k := 0, len(trades)-1; i < k; i, k = i+1, k-1 {
		trades[i], trades[k] = trades[k], trades[i]
	}
	return trades, nil
}

// SaveOrder inserts or updates an order.
func (j *Journal) SaveOrder(ctx context.Context, order *models.Order) error {
	if err := j.db.WithContext(ctx).Save(order).Error; err != nil {
		return fmt.Errorf("failed to save order %s: %w", order.ID, err)
	}
	return nil
}

// GetOrder loads an order by id.
func (j *Journal) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := j.db.WithContext(ctx).First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", id, err)
	}
	return &order, nil
}

// OpenOrders returns the resting orders of an instrument, oldest first.
func (j *Journal) OpenOrders(ctx context.Context, instrumentID string) ([]models.Order, error) {
	var orders []models.Order
	err := j.db.WithContext(ctx).
		Where("instrument_id = ? AND status = ?", instrumentID, models.OrderStatusOpen).
		Order("created_at asc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load open orders: %w", err)
	}
	return orders, nil
}
