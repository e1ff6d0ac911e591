package server

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/lawdirectory/internal/observability/context"
	"github.com/smallbiznis/lawdirectory/internal/observability/logger"
	"go.uber.org/zap"
)

const rateLimitReasonClientRate = "client-rate"

// LookupRateLimit throttles the public lookup endpoints per client IP.
func (s *Server) LookupRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.lookupLimiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		endpoint := normalizeRateLimitEndpoint(c)
		clientKey := obscontext.ClientIPFromContext(ctx)
		if clientKey == "" {
			clientKey = c.ClientIP()
		}

		result, err := s.lookupLimiter.Allow(ctx, endpoint, clientKey)
		if err != nil {
			logger.FromContext(ctx).Warn("lookup rate limit check failed",
				zap.String("endpoint", endpoint),
				zap.Error(err),
			)
			AbortWithError(c, ErrServiceUnavailable)
			return
		}
		if result != nil && !result.Allowed {
			s.denyLookup(c, endpoint, result.RetryAfter)
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		}
		if result != nil {
			c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		c.Next()
	}
}

func (s *Server) denyLookup(c *gin.Context, endpoint string, retryAfter time.Duration) {
	ctx := c.Request.Context()
	logger.FromContext(ctx).Warn("lookup rate limit exceeded",
		zap.String("reason", rateLimitReasonClientRate),
		zap.String("endpoint", endpoint),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, rateLimitReasonClientRate)
	}

	c.Header("Retry-After", retryAfterSeconds(retryAfter))
	c.Header("X-Rate-Limited-Reason", rateLimitReasonClientRate)
	AbortWithError(c, ErrRateLimited)
}

// retryAfterSeconds rounds up and never advertises less than one second.
func retryAfterSeconds(d time.Duration) string {
	seconds := int64(math.Ceil(d.Seconds()))
	if seconds < 1 {
		seconds = 1
	}
	return strconv.FormatInt(seconds, 10)
}

func normalizeRateLimitEndpoint(c *gin.Context) string {
	if c == nil {
		return "unknown"
	}
	endpoint := strings.TrimSpace(c.FullPath())
	if endpoint == "" {
		endpoint = strings.TrimSpace(c.Request.URL.Path)
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	return endpoint
}
