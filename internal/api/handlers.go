package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"creator-market-sim/internal/models"
	"creator-market-sim/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrderService places and cancels user orders.
type OrderService interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*models.Order, error)
	CancelOrder(ctx context.Context, id string) (*models.Order, error)
}

// TradeTape lists executed trades.
type TradeTape interface {
	RecentTrades(ctx context.Context, instrumentID string, limit int) ([]models.Trade, error)
}

// Handler holds dependencies for the API endpoints.
type Handler struct {
	log    *zap.Logger
	market service.MarketService
	orders OrderService
	trades TradeTape
}

// NewHandler creates a new Handler.
func NewHandler(log *zap.Logger, market service.MarketService, orders OrderService, trades TradeTape) *Handler {
	return &Handler{log: log.Named("api"), market: market, orders: orders, trades: trades}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// StatusResponse reports a simple status string.
type StatusResponse struct {
	Status string `json:"status"`
}

// DetectRequest carries an explicit trade window for anomaly detection.
type DetectRequest struct {
	Trades []models.Trade `json:"trades" validate:"required"`
}

type predictionQuery struct {
	Timeframe string `default:"24h" validate:"oneof=24h 7d 30d 90d"`
	Model     string `default:"HYBRID" validate:"oneof=ENGAGEMENT_FOCUSED SENTIMENT_ANALYSIS GROWTH_TRAJECTORY CONSISTENCY REVENUE_WEIGHTED SOCIAL_WEIGHTED HYBRID"`
}

type tradesQuery struct {
	InstrumentID string
	Limit        int `default:"50" validate:"min=1,max=1000"`
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// ListInstruments returns the instrument catalogue.
func (h *Handler) ListInstruments(w http.ResponseWriter, r *http.Request) {
	list, err := h.market.ListInstruments(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// GetInstrument returns one instrument.
func (h *Handler) GetInstrument(w http.ResponseWriter, r *http.Request) {
	inst, err := h.market.GetInstrument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// GetMarketDepth returns the depth model of an instrument.
func (h *Handler) GetMarketDepth(w http.ResponseWriter, r *http.Request) {
	depth, err := h.market.GetMarketDepth(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, depth)
}

// PredictPriceMovement runs a valuation; timeframe and model default to 24h and HYBRID.
func (h *Handler) PredictPriceMovement(w http.ResponseWriter, r *http.Request) {
	q := predictionQuery{
		Timeframe: r.URL.Query().Get("timeframe"),
		Model:     r.URL.Query().Get("model"),
	}
	if errs := applyAndValidate(r, &q); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid query", Errors: errs})
		return
	}

	res, err := h.market.PredictPriceMovement(r.Context(), chi.URLParam(r, "id"), models.Timeframe(q.Timeframe), models.ModelType(q.Model))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DetectAnomalies analyzes the journal's recent trades of an instrument.
func (h *Handler) DetectAnomalies(w http.ResponseWriter, r *http.Request) {
	res, err := h.market.DetectAnomalies(r.Context(), chi.URLParam(r, "id"), nil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DetectAnomaliesInWindow analyzes the trade window supplied in the body.
func (h *Handler) DetectAnomaliesInWindow(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if errs := readAndValidateBody(r, &req); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request", Errors: errs})
		return
	}
	res, err := h.market.DetectAnomalies(r.Context(), chi.URLParam(r, "id"), req.Trades)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTrades returns the newest trades, optionally for one instrument.
func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	q := tradesQuery{InstrumentID: r.URL.Query().Get("instrument_id")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be an integer"})
			return
		}
		// zero would otherwise be replaced by the default
		if limit <= 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be positive"})
			return
		}
		q.Limit = limit
	}
	if errs := applyAndValidate(r, &q); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid query", Errors: errs})
		return
	}

	trades, err := h.trades.RecentTrades(r.Context(), q.InstrumentID, q.Limit)
	if err != nil {
		h.log.Error("Failed to get trades from journal", zap.Error(err))
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trades)
}

// PlaceOrder accepts a market or limit order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req service.PlaceOrderRequest
	if errs := readAndValidateBody(r, &req); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid order", Errors: errs})
		return
	}
	order, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

// CancelOrder cancels a resting order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Connect starts the simulated feed.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	if err := h.market.Connect(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "connected"})
}

// Disconnect stops the simulated feed.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	if err := h.market.Disconnect(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Status: "disconnected"})
}

// StatusCode maps a domain error to its HTTP status.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := StatusCode(err)
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", zap.Error(err))
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
