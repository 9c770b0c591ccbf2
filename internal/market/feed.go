package market

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"creator-market-sim/internal/events"
	"creator-market-sim/internal/metrics"
	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FeedConfig holds the timing and shape of the simulated activity.
type FeedConfig struct {
	PriceIntervalMin time.Duration
	PriceIntervalMax time.Duration
	BookIntervalMin  time.Duration
	BookIntervalMax  time.Duration
	TradeIntervalMin time.Duration
	TradeIntervalMax time.Duration
	TradeProbability float64
	// MaxPriceStep is the largest relative move of one tick (0.01 = 1%).
	MaxPriceStep float64
	// MaxTradeSlippage bounds trade prices around the current price (0.005 = 0.5%).
	MaxTradeSlippage float64
	// PriceFloor and PriceCeiling bound the random walk. Zero disables a bound.
	PriceFloor   float64
	PriceCeiling float64
	// TraderPool is the number of synthetic participant ids trades are drawn from.
	TraderPool int
}

// DefaultFeedConfig returns the standard simulation cadence.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		PriceIntervalMin: 2 * time.Second,
		PriceIntervalMax: 5 * time.Second,
		BookIntervalMin:  5 * time.Second,
		BookIntervalMax:  10 * time.Second,
		TradeIntervalMin: 3 * time.Second,
		TradeIntervalMax: 8 * time.Second,
		TradeProbability: 0.4,
		MaxPriceStep:     0.01,
		MaxTradeSlippage: 0.005,
		TraderPool:       1000,
	}
}

// Feed is the timer-driven publisher of price ticks, order book snapshots and trades.
// It is constructed and owned by the composition root.
type Feed struct {
	logger   *zap.Logger
	cfg      FeedConfig
	bus      *events.Bus
	registry *Registry
	rng      random.Source
	metrics  *metrics.Recorder
	now      func() time.Time

	mu         sync.Mutex
	connected  bool
	generation uint64
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewFeed creates a disconnected feed.
func NewFeed(logger *zap.Logger, cfg FeedConfig, bus *events.Bus, registry *Registry, rng random.Source, rec *metrics.Recorder) *Feed {
	if cfg.TraderPool < 2 {
		cfg.TraderPool = DefaultFeedConfig().TraderPool
	}
	return &Feed{
		logger:   logger.Named("feed"),
		cfg:      cfg,
		bus:      bus,
		registry: registry,
		rng:      rng,
		metrics:  rec,
		now:      time.Now,
	}
}

// Connected reports whether the feed is running.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Connect starts the three generator timers. Calling it while connected is a no-op.
func (f *Feed) Connect() {
	f.mu.Lock()
	if f.connected {
		f.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	f.connected = true
	f.generation++
	f.cancel = cancel
	f.done = make(chan struct{})
	gen, done := f.generation, f.done
	f.mu.Unlock()

	f.logger.Info("Feed connected", zap.Int("instruments", f.registry.Len()))
	f.bus.Emit(events.Connection, events.ConnectionPayload{Status: events.StatusConnected, Timestamp: f.now()})

	go f.run(ctx, gen, done)
}

// Disconnect stops every timer and waits for the generator loop to exit, then emits a
// disconnected Connection event. No generator event fires after it returns.
//
// It blocks on the generator goroutine, so a bus handler must not call it synchronously.
func (f *Feed) Disconnect() {
	f.mu.Lock()
	if !f.connected {
		f.mu.Unlock()
		return
	}
	f.connected = false
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()

	cancel()
	<-done

	f.logger.Info("Feed disconnected")
	f.bus.Emit(events.Connection, events.ConnectionPayload{Status: events.StatusDisconnected, Timestamp: f.now()})
}

func (f *Feed) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	priceTimer := time.NewTimer(random.Duration(f.rng, f.cfg.PriceIntervalMin, f.cfg.PriceIntervalMax))
	defer priceTimer.Stop()
	bookTimer := time.NewTimer(random.Duration(f.rng, f.cfg.BookIntervalMin, f.cfg.BookIntervalMax))
	defer bookTimer.Stop()
	tradeTimer := time.NewTimer(random.Duration(f.rng, f.cfg.TradeIntervalMin, f.cfg.TradeIntervalMax))
	defer tradeTimer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-priceTimer.C:
			if err := f.tickPrice(gen); err != nil {
				f.logger.Error("Price tick failed", zap.Error(err))
			}
			priceTimer.Reset(random.Duration(f.rng, f.cfg.PriceIntervalMin, f.cfg.PriceIntervalMax))
		case <-bookTimer.C:
			if err := f.publishBook(gen); err != nil {
				f.logger.Error("Order book snapshot failed", zap.Error(err))
			}
			bookTimer.Reset(random.Duration(f.rng, f.cfg.BookIntervalMin, f.cfg.BookIntervalMax))
		case <-tradeTimer.C:
			if err := f.maybeTrade(gen); err != nil {
				f.logger.Error("Trade execution failed", zap.Error(err))
			}
			tradeTimer.Reset(random.Duration(f.rng, f.cfg.TradeIntervalMin, f.cfg.TradeIntervalMax))
		}
	}
}

// active reports whether the session gen is still the connected one.
func (f *Feed) active(gen uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected && f.generation == gen
}

func (f *Feed) pickInstrument() (models.Instrument, bool) {
	n := f.registry.Len()
	if n == 0 {
		return models.Instrument{}, false
	}
	return f.registry.At(f.rng.Intn(n)), true
}

func (f *Feed) tickPrice(gen uint64) error {
	if !f.active(gen) {
		return nil
	}
	inst, ok := f.pickInstrument()
	if !ok {
		return nil
	}

	newPrice := f.boundPrice(NextPrice(f.rng, inst.CurrentPrice, f.cfg.MaxPriceStep))
	oldPrice, err := f.registry.SetPrice(inst.ID, newPrice)
	if err != nil {
		return fmt.Errorf("update price of %s: %w", inst.ID, err)
	}
	f.metrics.RecordLastPrice(inst.ID, newPrice)

	f.logger.Debug("Price tick",
		zap.String("instrument", inst.ID),
		zap.Float64("old_price", oldPrice),
		zap.Float64("new_price", newPrice))
	f.bus.Emit(events.PriceUpdate, events.PricePayload{
		InstrumentID: inst.ID,
		OldPrice:     oldPrice,
		NewPrice:     newPrice,
		Timestamp:    f.now(),
	})
	return nil
}

func (f *Feed) publishBook(gen uint64) error {
	if !f.active(gen) {
		return nil
	}
	inst, ok := f.pickInstrument()
	if !ok {
		return nil
	}
	bids, asks := SynthesizeBook(f.rng, inst.CurrentPrice)
	f.bus.Emit(events.OrderBookUpdate, events.OrderBookPayload{
		InstrumentID: inst.ID,
		Bids:         bids,
		Asks:         asks,
		Timestamp:    f.now(),
	})
	return nil
}

func (f *Feed) maybeTrade(gen uint64) error {
	if !f.active(gen) {
		return nil
	}
	if !random.Chance(f.rng, f.cfg.TradeProbability) {
		return nil
	}
	inst, ok := f.pickInstrument()
	if !ok {
		return nil
	}
	trade := SynthesizeTrade(f.rng, inst, f.cfg.MaxTradeSlippage, f.cfg.TraderPool, f.now())
	f.logger.Debug("Trade executed",
		zap.String("instrument", inst.ID),
		zap.String("trade_id", trade.ID),
		zap.Float64("price", trade.Price),
		zap.Float64("quantity", trade.Quantity))
	f.bus.Emit(events.TradeExecuted, events.TradePayload{Trade: trade})
	return nil
}

func (f *Feed) boundPrice(p float64) float64 {
	if f.cfg.PriceFloor > 0 && p < f.cfg.PriceFloor {
		p = f.cfg.PriceFloor
	}
	if f.cfg.PriceCeiling > 0 && p > f.cfg.PriceCeiling {
		p = f.cfg.PriceCeiling
	}
	return p
}

// NextPrice applies one random-walk step of at most maxStep in either direction.
// There is no floor: repeated negative draws drift the price toward zero.
func NextPrice(r random.Source, old, maxStep float64) float64 {
	return old * (1 + random.Uniform(r, -maxStep, maxStep))
}

// SynthesizeTrade builds one trade near the instrument's current price between two
// distinct participants drawn from a pool of traderPool ids.
func SynthesizeTrade(r random.Source, inst models.Instrument, slippage float64, traderPool int, at time.Time) models.Trade {
	buyer := r.Intn(traderPool)
	seller := r.Intn(traderPool - 1)
	if seller >= buyer {
		seller++
	}
	side := models.SideBuy
	if r.Float64() < 0.5 {
		side = models.SideSell
	}
	return models.Trade{
		ID:           uuid.NewString(),
		InstrumentID: inst.ID,
		BuyerID:      traderID(buyer),
		SellerID:     traderID(seller),
		Price:        inst.CurrentPrice * (1 + random.Uniform(r, -slippage, slippage)),
		Quantity:     math.Floor(random.Uniform(r, 1, 101)),
		Side:         side,
		Timestamp:    at,
	}
}

func traderID(n int) string {
	return fmt.Sprintf("user-%d", n)
}
