package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"creator-market-sim/internal/anomaly"
	"creator-market-sim/internal/events"
	"creator-market-sim/internal/market"
	"creator-market-sim/internal/metrics"
	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
	"creator-market-sim/internal/valuation"
	"go.uber.org/zap"
)

// MarketService is the asynchronous surface consumed by dashboards. The in-process
// Service and the remote HTTP client both implement it.
type MarketService interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	ListInstruments(ctx context.Context) ([]models.Instrument, error)
	GetInstrument(ctx context.Context, instrumentID string) (*models.Instrument, error)
	PredictPriceMovement(ctx context.Context, instrumentID string, timeframe models.Timeframe, model models.ModelType) (*models.ValuationResult, error)
	DetectAnomalies(ctx context.Context, instrumentID string, recentTrades []models.Trade) (*models.AnomalyResult, error)
	GetMarketDepth(ctx context.Context, instrumentID string) (*models.MarketDepth, error)
}

// TradeSource supplies the rolling trade window when a caller passes none.
type TradeSource interface {
	RecentTrades(ctx context.Context, instrumentID string, limit int) ([]models.Trade, error)
}

// Config controls the simulated call latency and the default detection window.
type Config struct {
	LatencyMin  time.Duration
	LatencyMax  time.Duration
	TradeWindow int
	Anomaly     *anomaly.Config
}

// Deps are the collaborators a Service is wired with.
type Deps struct {
	Feed     *market.Feed
	Bus      *events.Bus
	Registry *market.Registry
	Trades   TradeSource
	Rand     random.Source
	Metrics  *metrics.Recorder
}

// Service implements MarketService over the in-process simulation.
type Service struct {
	logger   *zap.Logger
	cfg      Config
	feed     *market.Feed
	bus      *events.Bus
	registry *market.Registry
	trades   TradeSource
	rng      random.Source
	metrics  *metrics.Recorder
	detector *anomaly.Detector
	now      func() time.Time
}

// ensure Service implements the interface
var _ MarketService = (*Service)(nil)

// New creates a Service. Trades may be nil, in which case callers must always pass a window.
func New(logger *zap.Logger, cfg Config, deps Deps) *Service {
	return &Service{
		logger:   logger.Named("service"),
		cfg:      cfg,
		feed:     deps.Feed,
		bus:      deps.Bus,
		registry: deps.Registry,
		trades:   deps.Trades,
		rng:      deps.Rand,
		metrics:  deps.Metrics,
		detector: anomaly.NewDetector(logger, cfg.Anomaly),
		now:      time.Now,
	}
}

// Bus exposes the event bus for On/Off subscriptions.
func (s *Service) Bus() *events.Bus {
	return s.bus
}

// Connect starts the generator.
func (s *Service) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("connect: %w: %v", models.ErrTransient, err)
	}
	s.feed.Connect()
	return nil
}

// Disconnect stops the generator. Must not be called from a bus handler.
func (s *Service) Disconnect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("disconnect: %w: %v", models.ErrTransient, err)
	}
	s.feed.Disconnect()
	return nil
}

// ListInstruments returns the catalogue.
func (s *Service) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list instruments: %w: %v", models.ErrTransient, err)
	}
	return s.registry.List(), nil
}

// GetInstrument returns one instrument.
func (s *Service) GetInstrument(ctx context.Context, instrumentID string) (*models.Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get instrument: %w: %v", models.ErrTransient, err)
	}
	inst, err := s.registry.Get(instrumentID)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// PredictPriceMovement runs the valuation engine against the instrument's current state.
func (s *Service) PredictPriceMovement(ctx context.Context, instrumentID string, timeframe models.Timeframe, model models.ModelType) (*models.ValuationResult, error) {
	var result models.ValuationResult
	err := s.call(ctx, "predict_price_movement", func() error {
		inst, err := s.registry.Get(instrumentID)
		if err != nil {
			return err
		}
		result, err = valuation.Predict(s.rng, inst, timeframe, model, s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// DetectAnomalies analyzes recentTrades, or the journal's latest window when recentTrades is nil.
func (s *Service) DetectAnomalies(ctx context.Context, instrumentID string, recentTrades []models.Trade) (*models.AnomalyResult, error) {
	var result models.AnomalyResult
	err := s.call(ctx, "detect_anomalies", func() error {
		inst, err := s.registry.Get(instrumentID)
		if err != nil {
			return err
		}
		if recentTrades == nil && s.trades != nil {
			recentTrades, err = s.trades.RecentTrades(ctx, instrumentID, s.cfg.TradeWindow)
			if err != nil {
				return fmt.Errorf("load trade window for %s: %w", instrumentID, err)
			}
		}
		result = s.detector.Detect(inst, recentTrades, s.now())
		s.metrics.RecordRiskScore(instrumentID, result.RiskScore)
		if result.Detected {
			s.logger.Info("Anomalies detected",
				zap.String("instrument", instrumentID),
				zap.Int("count", len(result.Anomalies)),
				zap.Float64("risk_score", result.RiskScore))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMarketDepth derives the depth model of the instrument at its current price.
func (s *Service) GetMarketDepth(ctx context.Context, instrumentID string) (*models.MarketDepth, error) {
	var depth models.MarketDepth
	err := s.call(ctx, "get_market_depth", func() error {
		inst, err := s.registry.Get(instrumentID)
		if err != nil {
			return err
		}
		depth = market.ComputeDepth(s.rng, inst)
		depth.OrderConcentration = math.Min(1, depth.OrderConcentration)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &depth, nil
}

// call waits the simulated latency, runs fn and records the outcome.
func (s *Service) call(ctx context.Context, op string, fn func() error) error {
	start := time.Now()
	err := s.wait(ctx, op)
	if err == nil {
		err = fn()
	}
	s.metrics.RecordCall(op, time.Since(start).Seconds(), err)
	if err != nil {
		s.logger.Debug("Call failed", zap.String("operation", op), zap.Error(err))
	}
	return err
}

func (s *Service) wait(ctx context.Context, op string) error {
	d := random.Duration(s.rng, s.cfg.LatencyMin, s.cfg.LatencyMax)
	if d <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w: %v", op, models.ErrTransient, err)
		}
		return nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w: %v", op, models.ErrTransient, ctx.Err())
	}
}
