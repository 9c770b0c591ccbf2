package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"creator-market-sim/internal/config"
	"creator-market-sim/internal/models"
	"creator-market-sim/internal/service"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to a running simulator over its HTTP API.
// It implements service.MarketService so dashboards can swap the in-process backend
// for a remote one.
type Client struct {
	client     *resty.Client
	logger     *zap.Logger
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// ensure Client implements the interface
var _ service.MarketService = (*Client)(nil)

// NewClient creates a client for the API at cfg.BaseURL.
func NewClient(cfg *config.Client, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	return &Client{
		client:     client,
		logger:     logger.Named("client"),
		limiter:    limiter,
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

// APIError is a non-2xx response from the simulator. It unwraps to the matching
// domain error so callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status code back to the domain error.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return models.ErrNotFound
	case e.StatusCode == http.StatusBadRequest:
		return models.ErrInvalidArgument
	case e.StatusCode == http.StatusConflict:
		return models.ErrInvalidTransition
	case e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500:
		return models.ErrTransient
	default:
		return nil
	}
}

func apiErrorFrom(resp *resty.Response) *APIError {
	var body struct {
		Error string `json:"error"`
	}
	msg := resp.String()
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != "" {
		msg = body.Error
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}

// Health checks that the simulator is reachable.
func (c *Client) Health(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if _, err := c.doRequest(ctx, http.MethodGet, "/health", c.client.R().SetResult(&status)); err != nil {
		return fmt.Errorf("failed to reach simulator: %w", err)
	}
	if status.Status != "ok" {
		return fmt.Errorf("simulator reports status %q", status.Status)
	}
	return nil
}

// Connect starts the remote feed.
func (c *Client) Connect(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/feed/connect", c.client.R()); err != nil {
		return fmt.Errorf("failed to connect feed: %w", err)
	}
	return nil
}

// Disconnect stops the remote feed.
func (c *Client) Disconnect(ctx context.Context) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/feed/disconnect", c.client.R()); err != nil {
		return fmt.Errorf("failed to disconnect feed: %w", err)
	}
	return nil
}

// ListInstruments fetches the instrument catalogue.
func (c *Client) ListInstruments(ctx context.Context) ([]models.Instrument, error) {
	var list []models.Instrument
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/instruments", c.client.R().SetResult(&list)); err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return list, nil
}

// GetInstrument fetches one instrument.
func (c *Client) GetInstrument(ctx context.Context, instrumentID string) (*models.Instrument, error) {
	var inst models.Instrument
	req := c.client.R().SetResult(&inst)
	if _, err := c.doRequest(ctx, http.MethodGet, instrumentPath(instrumentID, ""), req); err != nil {
		return nil, fmt.Errorf("failed to get instrument %s: %w", instrumentID, err)
	}
	return &inst, nil
}

// PredictPriceMovement requests a valuation.
func (c *Client) PredictPriceMovement(ctx context.Context, instrumentID string, timeframe models.Timeframe, model models.ModelType) (*models.ValuationResult, error) {
	var res models.ValuationResult
	req := c.client.R().
		SetQueryParam("timeframe", string(timeframe)).
		SetQueryParam("model", string(model)).
		SetResult(&res)
	if _, err := c.doRequest(ctx, http.MethodGet, instrumentPath(instrumentID, "/prediction"), req); err != nil {
		return nil, fmt.Errorf("failed to predict price movement of %s: %w", instrumentID, err)
	}
	return &res, nil
}

// DetectAnomalies analyzes recentTrades remotely, or the server's own window when nil.
func (c *Client) DetectAnomalies(ctx context.Context, instrumentID string, recentTrades []models.Trade) (*models.AnomalyResult, error) {
	var res models.AnomalyResult
	req := c.client.R().SetResult(&res)
	method := http.MethodGet
	if recentTrades != nil {
		method = http.MethodPost
		req.SetHeader("Content-Type", "application/json").
			SetBody(map[string][]models.Trade{"trades": recentTrades})
	}
	if _, err := c.doRequest(ctx, method, instrumentPath(instrumentID, "/anomalies"), req); err != nil {
		return nil, fmt.Errorf("failed to detect anomalies for %s: %w", instrumentID, err)
	}
	return &res, nil
}

// GetMarketDepth fetches the depth model of an instrument.
func (c *Client) GetMarketDepth(ctx context.Context, instrumentID string) (*models.MarketDepth, error) {
	var depth models.MarketDepth
	req := c.client.R().SetResult(&depth)
	if _, err := c.doRequest(ctx, http.MethodGet, instrumentPath(instrumentID, "/depth"), req); err != nil {
		return nil, fmt.Errorf("failed to get market depth of %s: %w", instrumentID, err)
	}
	return &depth, nil
}

// RecentTrades lists the newest trades, optionally for one instrument.
func (c *Client) RecentTrades(ctx context.Context, instrumentID string, limit int) ([]models.Trade, error) {
	var trades []models.Trade
	req := c.client.R().SetResult(&trades)
	if instrumentID != "" {
		req.SetQueryParam("instrument_id", instrumentID)
	}
	if limit > 0 {
		req.SetQueryParam("limit", strconv.Itoa(limit))
	}
	if _, err := c.doRequest(ctx, http.MethodGet, "/api/trades", req); err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// PlaceOrder submits an order.
func (c *Client) PlaceOrder(ctx context.Context, order service.PlaceOrderRequest) (*models.Order, error) {
	var placed models.Order
	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(order).
		SetResult(&placed)
	if _, err := c.doRequest(ctx, http.MethodPost, "/api/orders", req); err != nil {
		c.logger.Error("Failed to place order", zap.String("instrument", order.InstrumentID), zap.Error(err))
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	c.logger.Info("Order placed", zap.String("order_id", placed.ID), zap.String("status", string(placed.Status)))
	return &placed, nil
}

// CancelOrder cancels an order.
func (c *Client) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	var cancelled models.Order
	req := c.client.R().SetResult(&cancelled)
	if _, err := c.doRequest(ctx, http.MethodDelete, "/api/orders/"+url.PathEscape(id), req); err != nil {
		return nil, fmt.Errorf("failed to cancel order %s: %w", id, err)
	}
	return &cancelled, nil
}

func instrumentPath(id, suffix string) string {
	return "/api/instruments/" + url.PathEscape(id) + suffix
}

// doRequest handles the actual request execution with rate limiting and retry logic.
// 429 and 5xx responses and transport errors are retried with exponential backoff;
// other non-2xx responses fail at once.
func (c *Client) doRequest(ctx context.Context, method, path string, req *resty.Request) (*resty.Response, error) {
	req.SetContext(ctx)

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w: %v", models.ErrTransient, err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+path))
		resp, err := req.Execute(method, path)
		if err == nil && !resp.IsError() {
			return resp, nil
		}

		var retryAfter time.Duration
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrTransient, ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %v", models.ErrTransient, err)
		} else {
			apiErr := apiErrorFrom(resp)
			if !errors.Is(apiErr, models.ErrTransient) {
				return nil, apiErr
			}
			lastErr = apiErr
			if seconds, convErr := strconv.Atoi(resp.Header().Get("Retry-After")); convErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}

		if i == c.maxRetries-1 {
			break
		}
		if retryAfter == 0 {
			// Exponential backoff: 1x, 2x, 4x the base delay
			retryAfter = time.Duration(math.Pow(2, float64(i))) * c.backoff
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(lastErr),
		)

		select {
		case <-time.After(retryAfter):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", models.ErrTransient, ctx.Err())
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxRetries, lastErr)
}
