package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter wires every endpoint. hub may be nil to disable /ws.
func NewRouter(log *zap.Logger, h *Handler, hub *Hub, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(log))

	r.Get("/health", h.Health)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	if hub != nil {
		r.Handle("/ws", hub)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/instruments", h.ListInstruments)
		r.Route("/instruments/{id}", func(r chi.Router) {
			r.Get("/", h.GetInstrument)
			r.Get("/depth", h.GetMarketDepth)
			r.Get("/prediction", h.PredictPriceMovement)
			r.Get("/anomalies", h.DetectAnomalies)
			r.Post("/anomalies", h.DetectAnomaliesInWindow)
		})
		r.Get("/trades", h.ListTrades)
		r.Post("/orders", h.PlaceOrder)
		r.Delete("/orders/{id}", h.CancelOrder)
		r.Post("/feed/connect", h.Connect)
		r.Post("/feed/disconnect", h.Disconnect)
	})

	return r
}

// LoggingMiddleware logs every request once it completes.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	log = log.Named("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
