package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/notifly/backend/api/transport"
	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/pkg/httpcontext"
	"github.com/notifly/backend/repository"
	llmUC "github.com/notifly/backend/usecase/llm"
)

type LLMHandler struct {
	baseHandler
	llm *llmUC.UseCase
}

func NewLLMHandler(llm *llmUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger, dev bool) *LLMHandler {
	return &LLMHandler{
		baseHandler: newBaseHandler(adapter, logger, dev),
		llm:         llm,
	}
}

// @Summary Process a standalone prompt
// @Tags llm
// @Router /api/llm/process [post]
func (h *LLMHandler) Process(ctx *fasthttp.RequestCtx) {
	var req transport.ProcessPromptRequest
	if !h.decodeBody(ctx, &req) {
		return
	}
	if err := transport.Validate(req); err != nil {
		h.respondError(ctx, err)
		return
	}

	// The standalone path waits for the terminal state; the provider call is
	// bounded by the use case's call timeout, not the request timeout.
	record, err := h.llm.ProcessPrompt(ctx, req.Prompt, req.Model)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, record)
}

// @Summary Get a response by id
// @Tags llm
// @Router /api/llm/responses/{id} [get]
func (h *LLMHandler) GetResponse(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	record, err := h.llm.GetResponse(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, record)
}

// @Summary List responses, paginated
// @Tags llm
// @Router /api/llm/responses [get]
func (h *LLMHandler) ListResponses(ctx *fasthttp.RequestCtx) {
	page := parseInt(string(ctx.QueryArgs().Peek("page")), 1)
	if page < 1 {
		page = 1
	}
	limit := parseInt(string(ctx.QueryArgs().Peek("limit")), 10)
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	records, total, err := h.llm.ListResponses(stdCtx, repository.Page{Number: page, Limit: limit})
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if records == nil {
		records = []domain.LLMResponse{}
	}

	h.respondJSON(ctx, http.StatusOK, transport.PaginatedResponses{
		Responses:  records,
		Pagination: transport.NewPagination(page, limit, total),
	})
}
