package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"creator-market-sim/internal/events"
	"creator-market-sim/internal/market"
	"creator-market-sim/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// deskCounterparty is the participant id the desk trades against.
const deskCounterparty = "market-maker"

// OrderStore persists orders for the desk.
type OrderStore interface {
	SaveOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	OpenOrders(ctx context.Context, instrumentID string) ([]models.Order, error)
}

// PlaceOrderRequest describes a new order.
type PlaceOrderRequest struct {
	InstrumentID string           `json:"instrument_id" validate:"required"`
	UserID       string           `json:"user_id" validate:"required"`
	Side         models.Side      `json:"side" validate:"required,oneof=buy sell"`
	Kind         models.OrderKind `json:"kind" validate:"required,oneof=market limit"`
	Price        float64          `json:"price" validate:"required_if=Kind limit,gte=0"`
	Quantity     float64          `json:"quantity" validate:"required,gt=0"`
}

// OrderDesk accepts user orders against the simulated market. Market orders fill at the
// current price; limit orders rest until a price tick crosses them. Every fill is published
// as an executed trade. There is no matching between users.
type OrderDesk struct {
	logger   *zap.Logger
	bus      *events.Bus
	registry *market.Registry
	store    OrderStore
	now      func() time.Time

	mu sync.Mutex
}

// NewOrderDesk creates an order desk.
func NewOrderDesk(logger *zap.Logger, bus *events.Bus, registry *market.Registry, store OrderStore) *OrderDesk {
	return &OrderDesk{
		logger:   logger.Named("orders"),
		bus:      bus,
		registry: registry,
		store:    store,
		now:      time.Now,
	}
}

// Attach subscribes the desk to price updates so resting limit orders can fill.
func (d *OrderDesk) Attach() events.Subscription {
	return d.bus.On(events.PriceUpdate, func(ev events.Event) {
		p, ok := ev.Payload.(events.PricePayload)
		if !ok {
			return
		}
		if err := d.fillCrossed(context.Background(), p.InstrumentID, p.NewPrice); err != nil {
			d.logger.Error("Failed to fill limit orders", zap.String("instrument", p.InstrumentID), zap.Error(err))
		}
	})
}

// PlaceOrder validates and records an order. Market orders are filled immediately.
func (d *OrderDesk) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	inst, err := d.registry.Get(req.InstrumentID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ID:           uuid.NewString(),
		InstrumentID: req.InstrumentID,
		UserID:       req.UserID,
		Side:         req.Side,
		Kind:         req.Kind,
		Price:        req.Price,
		Quantity:     req.Quantity,
		Status:       models.OrderStatusPending,
		CreatedAt:    d.now(),
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if order.Kind == models.OrderKindMarket {
		order.Price = inst.CurrentPrice
		if err := d.fill(ctx, order, inst.CurrentPrice); err != nil {
			return nil, err
		}
		return order, nil
	}

	if err := order.Open(); err != nil {
		return nil, err
	}
	if err := d.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	d.logger.Info("Limit order opened",
		zap.String("order_id", order.ID),
		zap.String("instrument", order.InstrumentID),
		zap.String("side", string(order.Side)),
		zap.Float64("price", order.Price))
	return order, nil
}

// CancelOrder cancels a pending or open order.
func (d *OrderDesk) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	order, err := d.store.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Cancel(); err != nil {
		return nil, err
	}
	if err := d.store.SaveOrder(ctx, order); err != nil {
		return nil, err
	}
	d.logger.Info("Order cancelled", zap.String("order_id", id))
	return order, nil
}

func (d *OrderDesk) fillCrossed(ctx context.Context, instrumentID string, price float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	open, err := d.store.OpenOrders(ctx, instrumentID)
	if err != nil {
		return err
	}
	for i := range open {
		order := &open[i]
		if !order.Crosses(price) {
			continue
		}
		if err := d.fill(ctx, order, order.Price); err != nil {
			return err
		}
	}
	return nil
}

// fill marks the order fulfilled, persists it and publishes the resulting trade.
// Callers hold d.mu.
func (d *OrderDesk) fill(ctx context.Context, order *models.Order, price float64) error {
	if err := order.Fulfill(); err != nil {
		return err
	}
	if err := d.store.SaveOrder(ctx, order); err != nil {
		return err
	}

	trade := models.Trade{
		ID:           uuid.NewString(),
		InstrumentID: order.InstrumentID,
		BuyerID:      order.UserID,
		SellerID:     deskCounterparty,
		Price:        price,
		Quantity:     order.Quantity,
		Side:         order.Side,
		Timestamp:    d.now(),
	}
	if order.Side == models.SideSell {
		trade.BuyerID, trade.SellerID = deskCounterparty, order.UserID
	}

	d.logger.Info("Order filled",
		zap.String("order_id", order.ID),
		zap.String("trade_id", trade.ID),
		zap.Float64("price", price))
	d.bus.Emit(events.TradeExecuted, events.TradePayload{Trade: trade})
	return nil
}

func checkRequest(req PlaceOrderRequest) error {
	switch {
	case req.InstrumentID == "" || req.UserID == "":
		return fmt.Errorf("instrument and user are required: %w", models.ErrInvalidArgument)
	case !req.Side.Valid():
		return fmt.Errorf("side %q: %w", req.Side, models.ErrInvalidArgument)
	case !req.Kind.Valid():
		return fmt.Errorf("order kind %q: %w", req.Kind, models.ErrInvalidArgument)
	case req.Quantity <= 0:
		return fmt.Errorf("quantity must be positive: %w", models.ErrInvalidArgument)
	case req.Kind == models.OrderKindLimit && req.Price <= 0:
		return fmt.Errorf("limit price must be positive: %w", models.ErrInvalidArgument)
	}
	return nil
}
