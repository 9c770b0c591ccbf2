package service

import (
	"context"
	"testing"
	"time"

	"creator-market-sim/internal/events"
	"creator-market-sim/internal/market"
	"creator-market-sim/internal/metrics"
	"creator-market-sim/internal/models"
	"creator-market-sim/internal/random"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockTradeSource struct {
	mock.Mock
}

func (m *mockTradeSource) RecentTrades(ctx context.Context, instrumentID string, limit int) ([]models.Trade, error) {
	args := m.Called(ctx, instrumentID, limit)
	trades, _ := args.Get(0).([]models.Trade)
	return trades, args.Error(1)
}

func testCatalogue() []models.Instrument {
	return []models.Instrument{
		{
			ID:                 "1",
			Symbol:             "ALEX",
			CurrentPrice:       2,
			InitialPrice:       1,
			EngagementScore:    90,
			AIScore:            75,
			RevenueUSD:         800_000,
			AverageDailyVolume: 100,
			LaunchedAt:         now.Add(-200 * 24 * time.Hour),
		},
		{ID: "2", Symbol: "MAYA", CurrentPrice: 0.5, EngagementScore: 40, AIScore: 40},
	}
}

func newTestService(t *testing.T, cfg Config, trades TradeSource, seed int64) *Service {
	t.Helper()
	registry, err := market.NewRegistry(testCatalogue())
	require.NoError(t, err)
	bus := events.NewBus(zap.NewNop(), nil)
	rng := random.New(seed)
	feed := market.NewFeed(zap.NewNop(), market.DefaultFeedConfig(), bus, registry, rng, nil)
	svc := New(zap.NewNop(), cfg, Deps{
		Feed:     feed,
		Bus:      bus,
		Registry: registry,
		Trades:   trades,
		Rand:     rng,
		Metrics:  metrics.New(prometheus.NewRegistry()),
	})
	svc.now = func() time.Time { return now }
	return svc
}

func washWindow() []models.Trade {
	trades := make([]models.Trade, 0, 6)
	for i := 0; i < 6; i++ {
		buyer, seller := "user-1", "user-2"
		if i%2 == 1 {
			buyer, seller = seller, buyer
		}
		trades = append(trades, models.Trade{
			ID:           string(rune('a' + i)),
			InstrumentID: "1",
			BuyerID:      buyer,
			SellerID:     seller,
			Price:        2,
			Quantity:     10,
			Side:         models.SideBuy,
			Timestamp:    now.Add(time.Duration(i) * time.Minute),
		})
	}
	return trades
}

func TestService_UnknownInstrument(t *testing.T) {
	svc := newTestService(t, Config{}, nil, 1)
	ctx := context.Background()

	_, err := svc.GetMarketDepth(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.PredictPriceMovement(ctx, "nope", models.Timeframe24h, models.ModelHybrid)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.DetectAnomalies(ctx, "nope", []models.Trade{})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.GetInstrument(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestService_GetMarketDepth(t *testing.T) {
	svc := newTestService(t, Config{}, nil, 3)

	depth, err := svc.GetMarketDepth(context.Background(), "1")
	require.NoError(t, err)

	assert.InDelta(t, 0.75, depth.OrderConcentration, 1e-9)
	assert.LessOrEqual(t, depth.OrderConcentration, 1.0)
	for i := 0; i < 3; i++ {
		assert.Less(t, depth.SupportLevels[i], 2.0)
		assert.Greater(t, depth.ResistanceLevels[i], 2.0)
	}
	assert.Less(t, depth.CurrentSpread.Bid, depth.CurrentSpread.Ask)
}

func TestService_PredictPriceMovement(t *testing.T) {
	ctx := context.Background()

	t.Run("deterministic for equal seeds", func(t *testing.T) {
		a, err := newTestService(t, Config{}, nil, 42).PredictPriceMovement(ctx, "1", models.Timeframe7d, models.ModelHybrid)
		require.NoError(t, err)
		b, err := newTestService(t, Config{}, nil, 42).PredictPriceMovement(ctx, "1", models.Timeframe7d, models.ModelHybrid)
		require.NoError(t, err)
		assert.Equal(t, a, b)
	})

	t.Run("invalid arguments", func(t *testing.T) {
		svc := newTestService(t, Config{}, nil, 1)
		_, err := svc.PredictPriceMovement(ctx, "1", "1y", models.ModelHybrid)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
		_, err = svc.PredictPriceMovement(ctx, "1", models.Timeframe24h, "MOON")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("result is bounded", func(t *testing.T) {
		svc := newTestService(t, Config{}, nil, 9)
		res, err := svc.PredictPriceMovement(ctx, "2", models.Timeframe90d, models.ModelSentimentAnalysis)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Confidence, 50.0)
		assert.LessOrEqual(t, res.Confidence, 95.0)
		assert.GreaterOrEqual(t, len(res.Factors), 2)
		assert.LessOrEqual(t, len(res.Factors), 4)
		assert.Greater(t, res.TargetPrice, 0.0)
	})
}

func TestService_DetectAnomalies(t *testing.T) {
	ctx := context.Background()

	t.Run("explicit window", func(t *testing.T) {
		source := new(mockTradeSource)
		svc := newTestService(t, Config{TradeWindow: 20}, source, 1)

		res, err := svc.DetectAnomalies(ctx, "1", washWindow())
		require.NoError(t, err)
		assert.True(t, res.Detected)
		assert.True(t, res.Has(models.AnomalyWashTrading))
		source.AssertNotCalled(t, "RecentTrades", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("journal window when none passed", func(t *testing.T) {
		source := new(mockTradeSource)
		source.On("RecentTrades", mock.Anything, "1", 20).Return(washWindow(), nil).Once()
		svc := newTestService(t, Config{TradeWindow: 20}, source, 1)

		res, err := svc.DetectAnomalies(ctx, "1", nil)
		require.NoError(t, err)
		assert.True(t, res.Has(models.AnomalyWashTrading))
		source.AssertExpectations(t)
	})

	t.Run("insufficient data", func(t *testing.T) {
		svc := newTestService(t, Config{}, nil, 1)
		res, err := svc.DetectAnomalies(ctx, "2", washWindow()[:2])
		require.NoError(t, err)
		assert.False(t, res.Detected)
		assert.Zero(t, res.RiskScore)
		assert.Empty(t, res.Anomalies)
	})
}

func TestService_LatencyHonoursContext(t *testing.T) {
	svc := newTestService(t, Config{LatencyMin: time.Hour, LatencyMax: time.Hour}, nil, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := svc.GetMarketDepth(ctx, "1")
	assert.ErrorIs(t, err, models.ErrTransient)
	assert.Less(t, time.Since(start), time.Second)
}

func TestService_LatencyIsApplied(t *testing.T) {
	svc := newTestService(t, Config{LatencyMin: 30 * time.Millisecond, LatencyMax: 40 * time.Millisecond}, nil, 1)

	start := time.Now()
	_, err := svc.GetMarketDepth(context.Background(), "1")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestService_ConnectDisconnect(t *testing.T) {
	svc := newTestService(t, Config{}, nil, 1)
	ctx := context.Background()

	var statuses []string
	svc.Bus().On(events.Connection, func(ev events.Event) {
		statuses = append(statuses, ev.Payload.(events.ConnectionPayload).Status)
	})

	require.NoError(t, svc.Connect(ctx))
	require.NoError(t, svc.Disconnect(ctx))
	assert.Equal(t, []string{events.StatusConnected, events.StatusDisconnected}, statuses)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, svc.Connect(cancelled), models.ErrTransient)
}

func TestService_ListInstruments(t *testing.T) {
	svc := newTestService(t, Config{}, nil, 1)

	list, err := svc.ListInstruments(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "ALEX", list[0].Symbol)

	inst, err := svc.GetInstrument(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "MAYA", inst.Symbol)
}
