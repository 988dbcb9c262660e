package transport

import (
	"time"

	"github.com/notifly/backend/domain"
)

// ErrorBody is the wire format for every error response. Details and Stack
// are populated outside production only where noted by the handler layer.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Stack   string `json:"stack,omitempty"`
}

type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// NewPagination derives the envelope fields from one page of results.
func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}

type PaginatedResponses struct {
	Responses  []domain.LLMResponse `json:"responses"`
	Pagination Pagination           `json:"pagination"`
}

// ProcessAccepted acknowledges an accepted asynchronous process request; the
// caller polls the response id for the terminal state.
type ProcessAccepted struct {
	Message    string                `json:"message"`
	ResponseID string                `json:"responseId"`
	Status     domain.ResponseStatus `json:"status"`
}

type Health struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}
