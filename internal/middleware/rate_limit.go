package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"stockbill/internal/common"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// RateLimitStore counts requests per key in a fixed window.
type RateLimitStore interface {
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RateLimiter struct {
	store  RateLimitStore
	limit  int
	window time.Duration
	logger logrus.FieldLogger
}

func NewRateLimiter(store RateLimitStore, limit int, window time.Duration, logger logrus.FieldLogger) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window, logger: logger}
}

// PerTenant limits requests per tenant, falling back to the client IP before the tenant
// is known. Store failures let the request through.
func (rl *RateLimiter) PerTenant() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.limit <= 0 {
				return next(c)
			}

			key := "ip:" + c.RealIP()
			if tenantID, ok := common.GetTenantIDFromContext(c.Request().Context()); ok {
				key = "tenant:" + tenantID.String()
			}

			limited, err := rl.store.IsRateLimited(c.Request().Context(), key, rl.limit, rl.window)
			if err != nil {
				rl.logger.WithError(err).WithField("key", key).Warn("rate limit check failed")
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
				return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
			}
			return next(c)
		}
	}
}
