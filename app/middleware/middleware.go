package appMiddleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-city-crud/app/observability/metrics"
	"github.com/FACorreiaa/go-city-crud/internal/api"
)

// Recoverer turns a panic into a JSON 500. The stack trace is logged, never sent.
func Recoverer(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					// Let net/http abort the connection.
					panic(rvr)
				}

				logger.ErrorContext(r.Context(), "Recovered from panic",
					slog.Any("panic", rvr),
					slog.String("request_id", middleware.GetReqID(r.Context())),
					slog.String("stack", string(debug.Stack())),
				)
				api.ErrorResponse(w, r, http.StatusInternalServerError, api.ErrTitleInternal, api.InternalErrorMessage)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RequestMetrics records request count and latency per route pattern.
func RequestMetrics(m *metrics.AppMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			attrs := metric.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.route", route),
				attribute.String("http.status_code", strconv.Itoa(status)),
			)
			m.CityRequestsTotal.Add(r.Context(), 1, attrs)
			m.CityRequestDurationSeconds.Record(r.Context(), time.Since(start).Seconds(), attrs)
		})
	}
}
