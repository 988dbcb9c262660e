package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/notifly/backend/api/transport"
)

// RateLimiter enforces a fixed-window per-client-IP budget backed by Redis,
// so the counters survive restarts and are shared between replicas.
type RateLimiter struct {
	client  *redislib.Client
	prefix  string
	window  time.Duration
	max     int
	message string
	logger  *zap.Logger
}

func NewRateLimiter(client *redislib.Client, prefix string, window time.Duration, max int, message string, logger *zap.Logger) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 100
	}
	if message == "" {
		message = "Too many requests, please try again later."
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		client:  client,
		prefix:  prefix,
		window:  window,
		max:     max,
		message: message,
		logger:  logger,
	}
}

// Wrap applies the budget to a handler. Redis outages fail open: the request
// proceeds rather than the limiter taking the API down with it.
func (rl *RateLimiter) Wrap(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		if rl == nil || rl.client == nil {
			next(ctx)
			return
		}

		key := fmt.Sprintf("%s:%s", rl.prefix, clientIP(ctx))
		stdCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		count, err := rl.client.Incr(stdCtx, key).Result()
		if err != nil {
			rl.logger.Warn("rate limit counter unavailable", zap.Error(err))
			next(ctx)
			return
		}
		if count == 1 {
			if err := rl.client.Expire(stdCtx, key, rl.window).Err(); err != nil {
				rl.logger.Warn("rate limit expiry failed", zap.Error(err))
			}
		}

		if count > int64(rl.max) {
			body, _ := json.Marshal(transport.ErrorBody{Error: rl.message})
			ctx.Response.Header.SetContentType("application/json")
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			ctx.SetBody(body)
			return
		}

		next(ctx)
	}
}

func clientIP(ctx *fasthttp.RequestCtx) string {
	if forwarded := string(ctx.Request.Header.Peek("X-Forwarded-For")); forwarded != "" {
		// Multi-hop headers list the originating client first.
		if idx := strings.IndexByte(forwarded, ','); idx >= 0 {
			forwarded = forwarded[:idx]
		}
		return strings.TrimSpace(forwarded)
	}
	addr := ctx.RemoteAddr().String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
