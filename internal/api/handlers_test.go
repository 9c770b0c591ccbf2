package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockMarketService is a mock type for service.MarketService.
type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) Connect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMarketService) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockMarketService) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]models.Instrument)
	return list, args.Error(1)
}

func (m *MockMarketService) GetInstrument(ctx context.Context, id string) (*models.Instrument, error) {
	args := m.Called(ctx, id)
	inst, _ := args.Get(0).(*models.Instrument)
	return inst, args.Error(1)
}

func (m *MockMarketService) PredictPriceMovement(ctx context.Context, id string, tf models.Timeframe, model models.ModelType) (*models.ValuationResult, error) {
	args := m.Called(ctx, id, tf, model)
	res, _ := args.Get(0).(*models.ValuationResult)
	return res, args.Error(1)
}

func (m *MockMarketService) DetectAnomalies(ctx context.Context, id string, trades []models.Trade) (*models.AnomalyResult, error) {
	args := m.Called(ctx, id, trades)
	res, _ := args.Get(0).(*models.AnomalyResult)
	return res, args.Error(1)
}

func (m *MockMarketService) GetMarketDepth(ctx context.Context, id string) (*models.MarketDepth, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*models.MarketDepth)
	return res, args.Error(1)
}

// MockOrderService is a mock type for OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*models.Order, error) {
	args := m.Called(ctx, req)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

// MockTradeTape is a mock type for TradeTape.
type MockTradeTape struct {
	mock.Mock
}

func (m *MockTradeTape) RecentTrades(ctx context.Context, instrumentID string, limit int) ([]models.Trade, error) {
	args := m.Called(ctx, instrumentID, limit)
	trades, _ := args.Get(0).([]models.Trade)
	return trades, args.Error(1)
}

type testAPI struct {
	market *MockMarketService
	orders *MockOrderService
	trades *MockTradeTape
	router http.Handler
}

func setupTestAPI() *testAPI {
	api := &testAPI{
		market: new(MockMarketService),
		orders: new(MockOrderService),
		trades: new(MockTradeTape),
	}
	h := NewHandler(zap.NewNop(), api.market, api.orders, api.trades)
	api.router = NewRouter(zap.NewNop(), h, nil, prometheus.NewRegistry())
	return api
}

func (a *testAPI) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestHealth(t *testing.T) {
	a := setupTestAPI()
	rec := a.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	a := setupTestAPI()
	rec := a.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetInstrument(t *testing.T) {
	testCases := []struct {
		name       string
		id         string
		result     *models.Instrument
		err        error
		wantStatus int
	}{
		{name: "found", id: "1", result: &models.Instrument{ID: "1", Symbol: "ALEX", CurrentPrice: 2}, wantStatus: http.StatusOK},
		{name: "not found", id: "9", err: fmt.Errorf("instrument 9: %w", models.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "transient", id: "1", err: fmt.Errorf("x: %w", models.ErrTransient), wantStatus: http.StatusServiceUnavailable},
		{name: "unexpected", id: "1", err: fmt.Errorf("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := setupTestAPI()
			a.market.On("GetInstrument", mock.Anything, tc.id).Return(tc.result, tc.err)

			rec := a.do(http.MethodGet, "/api/instruments/"+tc.id, nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.result != nil {
				var got models.Instrument
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, "ALEX", got.Symbol)
			}
			a.market.AssertExpectations(t)
		})
	}
}

func TestListInstruments(t *testing.T) {
	a := setupTestAPI()
	a.market.On("ListInstruments", mock.Anything).Return([]models.Instrument{{ID: "1"}, {ID: "2"}}, nil)

	rec := a.do(http.MethodGet, "/api/instruments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got []models.Instrument
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Len(t, got, 2)
}

func TestGetMarketDepth(t *testing.T) {
	a := setupTestAPI()
	depth := &models.MarketDepth{OrderConcentration: 0.7, CurrentSpread: models.Spread{Bid: 0.99, Ask: 1.01}}
	a.market.On("GetMarketDepth", mock.Anything, "1").Return(depth, nil)

	rec := a.do(http.MethodGet, "/api/instruments/1/depth", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.MarketDepth
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, *depth, got)
}

func TestPredictPriceMovement(t *testing.T) {
	result := &models.ValuationResult{Prediction: models.Prediction{Direction: models.DirectionUp, Percentage: 0.1}, Confidence: 70}

	t.Run("defaults", func(t *testing.T) {
		a := setupTestAPI()
		a.market.On("PredictPriceMovement", mock.Anything, "1", models.Timeframe24h, models.ModelHybrid).Return(result, nil)

		rec := a.do(http.MethodGet, "/api/instruments/1/prediction", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		a.market.AssertExpectations(t)
	})

	t.Run("explicit query", func(t *testing.T) {
		a := setupTestAPI()
		a.market.On("PredictPriceMovement", mock.Anything, "1", models.Timeframe30d, models.ModelRevenueWeighted).Return(result, nil)

		rec := a.do(http.MethodGet, "/api/instruments/1/prediction?timeframe=30d&model=REVENUE_WEIGHTED", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		a.market.AssertExpectations(t)
	})

	t.Run("invalid timeframe", func(t *testing.T) {
		a := setupTestAPI()

		rec := a.do(http.MethodGet, "/api/instruments/1/prediction?timeframe=1y", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "ERR_ONEOF", resp.Errors[0].Code)
		assert.Equal(t, "Timeframe", resp.Errors[0].Field)
		a.market.AssertNotCalled(t, "PredictPriceMovement", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDetectAnomalies(t *testing.T) {
	result := &models.AnomalyResult{Detected: true, RiskScore: 56, Anomalies: []models.Anomaly{{Type: models.AnomalyWashTrading}}}

	t.Run("journal window", func(t *testing.T) {
		a := setupTestAPI()
		a.market.On("DetectAnomalies", mock.Anything, "1", []models.Trade(nil)).Return(result, nil)

		rec := a.do(http.MethodGet, "/api/instruments/1/anomalies", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got models.AnomalyResult
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, 56.0, got.RiskScore)
	})

	t.Run("explicit window", func(t *testing.T) {
		a := setupTestAPI()
		a.market.On("DetectAnomalies", mock.Anything, "1", mock.MatchedBy(func(tr []models.Trade) bool {
			return len(tr) == 1 && tr[0].ID == "t-1"
		})).Return(result, nil)

		rec := a.do(http.MethodPost, "/api/instruments/1/anomalies", DetectRequest{Trades: []models.Trade{{ID: "t-1", InstrumentID: "1"}}})
		assert.Equal(t, http.StatusOK, rec.Code)
		a.market.AssertExpectations(t)
	})

	t.Run("missing trades", func(t *testing.T) {
		a := setupTestAPI()
		rec := a.do(http.MethodPost, "/api/instruments/1/anomalies", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeError(t, rec)
		require.Len(t, resp.Errors, 1)
		assert.Equal(t, "trades", resp.Errors[0].Field)
	})
}

func TestListTrades(t *testing.T) {
	testCases := []struct {
		name       string
		query      string
		instrument string
		limit      int
		wantStatus int
	}{
		{name: "default limit", query: "", instrument: "", limit: 50, wantStatus: http.StatusOK},
		{name: "filtered", query: "?instrument_id=2&limit=5", instrument: "2", limit: 5, wantStatus: http.StatusOK},
		{name: "limit too large", query: "?limit=5000", wantStatus: http.StatusBadRequest},
		{name: "limit not a number", query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "zero limit", query: "?limit=0", wantStatus: http.StatusBadRequest},
		{name: "negative limit", query: "?limit=-1", wantStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := setupTestAPI()
			if tc.wantStatus == http.StatusOK {
				a.trades.On("RecentTrades", mock.Anything, tc.instrument, tc.limit).Return([]models.Trade{{ID: "t"}}, nil)
			}

			rec := a.do(http.MethodGet, "/api/trades"+tc.query, nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
			a.trades.AssertExpectations(t)
		})
	}
}

func TestPlaceOrder(t *testing.T) {
	t.Run("limit order", func(t *testing.T) {
		a := setupTestAPI()
		req := service.PlaceOrderRequest{InstrumentID: "1", UserID: "u", Side: models.SideBuy, Kind: models.OrderKindLimit, Price: 1.5, Quantity: 2}
		a.orders.On("PlaceOrder", mock.Anything, req).Return(&models.Order{ID: "o-1", Status: models.OrderStatusOpen}, nil)

		rec := a.do(http.MethodPost, "/api/orders", req)
		require.Equal(t, http.StatusCreated, rec.Code)
		var got models.Order
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, models.OrderStatusOpen, got.Status)
	})

	testCases := []struct {
		name      string
		body      interface{}
		wantField string
	}{
		{name: "bad side", body: map[string]interface{}{"instrument_id": "1", "user_id": "u", "side": "hold", "kind": "market", "quantity": 1}, wantField: "side"},
		{name: "limit without price", body: map[string]interface{}{"instrument_id": "1", "user_id": "u", "side": "buy", "kind": "limit", "quantity": 1}, wantField: "price"},
		{name: "zero quantity", body: map[string]interface{}{"instrument_id": "1", "user_id": "u", "side": "buy", "kind": "market", "quantity": 0}, wantField: "quantity"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := setupTestAPI()
			rec := a.do(http.MethodPost, "/api/orders", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			require.NotEmpty(t, resp.Errors)
			assert.Equal(t, tc.wantField, resp.Errors[0].Field)
			a.orders.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		a := setupTestAPI()
		req := httptest.NewRequest(http.MethodPost, "/api/orders", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		a.router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "ERR_MALFORMED", decodeError(t, rec).Errors[0].Code)
	})
}

func TestCancelOrder(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "cancelled", wantStatus: http.StatusOK},
		{name: "unknown", err: fmt.Errorf("order x: %w", models.ErrNotFound), wantStatus: http.StatusNotFound},
		{name: "already final", err: fmt.Errorf("order x: %w", models.ErrInvalidTransition), wantStatus: http.StatusConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := setupTestAPI()
			var order *models.Order
			if tc.err == nil {
				order = &models.Order{ID: "x", Status: models.OrderStatusCancelled}
			}
			a.orders.On("CancelOrder", mock.Anything, "x").Return(order, tc.err)

			rec := a.do(http.MethodDelete, "/api/orders/x", nil)
			assert.Equal(t, tc.wantStatus, rec.Code)
		})
	}
}

func TestFeedControl(t *testing.T) {
	a := setupTestAPI()
	a.market.On("Connect", mock.Anything).Return(nil)
	a.market.On("Disconnect", mock.Anything).Return(nil)

	rec := a.do(http.MethodPost, "/api/feed/connect", nil)
	assert.JSONEq(t, `{"status":"connected"}`, rec.Body.String())
	rec = a.do(http.MethodPost, "/api/feed/disconnect", nil)
	assert.JSONEq(t, `{"status":"disconnected"}`, rec.Body.String())
	a.market.AssertExpectations(t)
}
