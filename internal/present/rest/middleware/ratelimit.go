package middleware

import (
	"errors"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/skymirror/skymirror/internal/domain"
	"github.com/skymirror/skymirror/internal/present/rest/presenter"
	"github.com/skymirror/skymirror/internal/service"
)

var tracer = otel.Tracer("ratelimit")

type RateLimitMiddleware struct {
	limiter *service.RateLimiter
}

func NewRateLimitMiddleware(limiter *service.RateLimiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: limiter}
}

// Limit charges one point per request against the caller's IP inside
// the given namespace. Exhausted buckets answer 429 with Retry-After.
func (m *RateLimitMiddleware) Limit(namespace string, limit int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), "RateLimit.Middleware.Limit")
			defer span.End()

			key := c.RealIP()
			span.SetAttributes(attribute.String("key", key))

			err := m.limiter.Consume(ctx, key, namespace, limit, window)
			if err != nil {
				var limited domain.RateLimitError
				if errors.As(err, &limited) {
					span.RecordError(err)
					return presenter.TooManyRequests(c, limited.RetryAfter)
				}
				return presenter.InternalError(c, err)
			}

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
