package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"securitypassport/pkg/platform/httputil"
	"securitypassport/pkg/requestcontext"
)

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware limits requests per authenticated tenant. Store errors fail
// open: the request proceeds and the error is logged.
type Middleware struct {
	store    Store
	limit    int
	window   time.Duration
	logger   *slog.Logger
	rejected prometheus.Counter
}

// NewMiddleware returns nil when limit is not positive; a nil Middleware
// passes every request through.
func NewMiddleware(store Store, limit int, window time.Duration, logger *slog.Logger, reg prometheus.Registerer) *Middleware {
	if limit <= 0 || store == nil {
		return nil
	}
	return &Middleware{
		store:  store,
		limit:  limit,
		window: window,
		logger: logger,
		rejected: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "passport_export_rate_limited_total",
			Help: "Export requests rejected by the per-tenant rate limit",
		}),
	}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tenantID := requestcontext.TenantID(ctx)
		if tenantID.IsNil() {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.store.Allow(ctx, "tenant:"+tenantID.String(), m.limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "failed to check export rate limit",
				"request_id", requestcontext.RequestID(ctx),
				"tenant_id", tenantID.String(),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
		if !result.Allowed {
			m.rejected.Inc()
			retry := result.RetryAfter(time.Now())
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
				Error:      "rate_limit_exceeded",
				Message:    "Too many exports for this tenant. Please try again later.",
				RetryAfter: retry,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
