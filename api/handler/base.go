package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/notifly/backend/api/transport"
	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/pkg/httpcontext"
)

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
	dev     bool
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger, dev bool) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger, dev: dev}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if payload == nil {
		ctx.SetBody(nil)
		return
	}
	body, _ := json.Marshal(payload)
	ctx.SetBody(body)
}

// respondError maps the typed error taxonomy onto status codes. Internal
// failures hide their message in production and carry details plus a stack
// trace in development.
func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case domain.IsDomainError(err, domain.ErrCodeInvalid):
		h.respondJSON(ctx, http.StatusBadRequest, transport.ErrorBody{
			Error:   "Validation failed",
			Details: err.Error(),
		})
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		h.respondJSON(ctx, http.StatusNotFound, transport.ErrorBody{Error: err.Error()})
	case domain.IsDomainError(err, domain.ErrCodeUnauthorized):
		h.respondJSON(ctx, http.StatusUnauthorized, transport.ErrorBody{Error: err.Error()})
	case domain.IsDomainError(err, domain.ErrCodeRateLimited):
		h.respondJSON(ctx, http.StatusTooManyRequests, transport.ErrorBody{Error: err.Error()})
	default:
		h.logger.Error("request failed", zap.Error(err))
		body := transport.ErrorBody{Error: "Internal server error"}
		if h.dev {
			body.Error = err.Error()
			body.Stack = string(debug.Stack())
		}
		h.respondJSON(ctx, http.StatusInternalServerError, body)
	}
}

func (h baseHandler) decodeBody(ctx *fasthttp.RequestCtx, out interface{}) bool {
	body := ctx.PostBody()
	if len(body) == 0 {
		// an absent body is treated as an empty object; required-field
		// validation decides whether that is acceptable
		return true
	}
	if err := json.Unmarshal(body, out); err != nil {
		h.respondJSON(ctx, http.StatusBadRequest, transport.ErrorBody{
			Error:   "Validation failed",
			Details: "request body is not valid JSON",
		})
		return false
	}
	return true
}

func pathParam(ctx *fasthttp.RequestCtx, name string) string {
	value, _ := ctx.UserValue(name).(string)
	return value
}

func parseInt(value string, fallback int) int {
	if v, err := strconv.Atoi(value); err == nil {
		return v
	}
	return fallback
}
