package appMiddleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httprate"

	"github.com/FACorreiaa/go-city-crud/internal/api"
)

// RateLimit limits each client IP to requests per window. Rejected requests
// get a JSON 429 in the same shape as every other error.
func RateLimit(requests int, window time.Duration, logger *slog.Logger) func(next http.Handler) http.Handler {
	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("path", r.URL.Path),
			)
			api.ErrorResponse(w, r, http.StatusTooManyRequests, api.ErrTitleRateLimit,
				"Rate limit exceeded, retry later.")
		}),
	)
}
