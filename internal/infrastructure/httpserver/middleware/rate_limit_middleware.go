package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/verification-service/internal/core/ports"
)

// RateLimitMiddleware throttles the anonymous token routes to slow down token guessing.
type RateLimitMiddleware struct {
	rateLimiter ports.RateLimiterService
	logger      *logrus.Logger
}

func NewRateLimitMiddleware(rateLimiter ports.RateLimiterService, logger *logrus.Logger) *RateLimitMiddleware {
	return &RateLimitMiddleware{rateLimiter: rateLimiter, logger: logger}
}

// PerClientIP limits requests by client address. It is a no-op when no limiter is configured
// and fails open when the limiter errors.
func (r *RateLimitMiddleware) PerClientIP() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if r.rateLimiter == nil {
				return next(c)
			}
			ip := c.RealIP()
			allowed, remaining, limit, reset, err := r.rateLimiter.Allow(c.Request().Context(), "ip:"+ip)
			if err != nil {
				if r.logger != nil {
					r.logger.WithError(err).WithField("ip", ip).Warn("rate limiter error; allowing request")
				}
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
			if !allowed {
				retry := int(time.Until(reset).Seconds())
				if retry < 1 {
					retry = 1
				}
				h.Set("Retry-After", strconv.Itoa(retry))
				if r.logger != nil {
					r.logger.WithFields(logrus.Fields{"ip": ip, "route": c.Path()}).Info("rate limit exceeded")
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
