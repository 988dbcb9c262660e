// Package httpcontext bridges fasthttp request handling and stdlib contexts.
package httpcontext

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	applogger "github.com/notifly/backend/pkg/logger"
)

// Adapter derives a deadline-bound stdlib context from a fasthttp request and
// propagates the X-Request-ID header, generating one when the client sent
// none. The id is echoed on the response so clients can quote it.
type Adapter struct {
	timeout time.Duration
}

func NewAdapter(timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Adapter{timeout: timeout}
}

// Attach returns the request-scoped context. The caller owns the cancel.
func (a *Adapter) Attach(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	stdCtx, cancel := context.WithTimeout(context.Background(), a.timeout)

	requestID := requestID(ctx)
	ctx.Response.Header.Set("X-Request-ID", requestID)
	stdCtx = applogger.ContextWithRequestID(stdCtx, requestID)

	return stdCtx, cancel
}

func requestID(ctx *fasthttp.RequestCtx) string {
	if ctx != nil {
		if header := strings.TrimSpace(string(ctx.Request.Header.Peek("X-Request-ID"))); header != "" {
			return header
		}
	}
	return uuid.NewString()
}
