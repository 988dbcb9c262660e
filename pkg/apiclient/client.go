// Package apiclient is a typed wrapper mirroring the HTTP API 1:1 for
// consumption by any frontend.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/notifly/backend/api/transport"
	"github.com/notifly/backend/domain"
)

const defaultTimeout = 90 * time.Second

// APIError carries the server's error envelope plus the HTTP status.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("api error (%d): %s: %s", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("api error (%d): %s", e.Status, e.Message)
}

// IsNotFound reports whether the error is a 404 from the API.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// Client talks to the backend. The zero timeout falls back to a default
// suited to the synchronous LLM endpoint.
type Client struct {
	baseURL   string
	http      *fasthttp.Client
	timeout   time.Duration
	authToken string
}

// New builds a client for the given server root, e.g. "http://localhost:4000".
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &fasthttp.Client{},
		timeout: defaultTimeout,
	}
}

// SetTimeout overrides the per-request fallback timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.timeout = timeout
	}
}

// SetAuthToken attaches a bearer token to every subsequent request.
func (c *Client) SetAuthToken(token string) {
	c.authToken = token
}

// HealthCheck calls GET /health.
func (c *Client) HealthCheck(ctx context.Context) (*transport.Health, error) {
	var out transport.Health
	if err := c.do(ctx, fasthttp.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTasks calls GET /api/tasks, optionally including each task's most
// recent responses.
func (c *Client) GetTasks(ctx context.Context, includeResponses bool) ([]domain.Task, error) {
	path := "/api/tasks"
	if includeResponses {
		path += "?include=llm-responses"
	}
	var out []domain.Task
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTask calls GET /api/tasks/{id}.
func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, fasthttp.MethodGet, "/api/tasks/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateTask calls POST /api/tasks.
func (c *Client) CreateTask(ctx context.Context, req transport.TaskCreateRequest) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, fasthttp.MethodPost, "/api/tasks", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask calls PUT /api/tasks/{id} with a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, req transport.TaskUpdateRequest) (*domain.Task, error) {
	var out domain.Task
	if err := c.do(ctx, fasthttp.MethodPut, "/api/tasks/"+id, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTask calls DELETE /api/tasks/{id}.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, fasthttp.MethodDelete, "/api/tasks/"+id, nil, nil)
}

// ProcessTask calls POST /api/tasks/{id}/process. The returned response id is
// pollable via GetTaskResponse while the call is still in flight.
func (c *Client) ProcessTask(ctx context.Context, id string, req transport.ProcessTaskRequest) (*transport.ProcessAccepted, error) {
	var out transport.ProcessAccepted
	if err := c.do(ctx, fasthttp.MethodPost, "/api/tasks/"+id+"/process", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTaskResponses calls GET /api/tasks/{id}/responses.
func (c *Client) GetTaskResponses(ctx context.Context, taskID string) ([]domain.LLMResponse, error) {
	var out []domain.LLMResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/api/tasks/"+taskID+"/responses", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTaskResponse calls GET /api/tasks/{id}/responses/{responseId}.
func (c *Client) GetTaskResponse(ctx context.Context, taskID, responseID string) (*domain.LLMResponse, error) {
	var out domain.LLMResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/api/tasks/"+taskID+"/responses/"+responseID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessPrompt calls POST /api/llm/process and waits for the terminal record.
func (c *Client) ProcessPrompt(ctx context.Context, req transport.ProcessPromptRequest) (*domain.LLMResponse, error) {
	var out domain.LLMResponse
	if err := c.do(ctx, fasthttp.MethodPost, "/api/llm/process", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetResponse calls GET /api/llm/responses/{id}.
func (c *Client) GetResponse(ctx context.Context, id string) (*domain.LLMResponse, error) {
	var out domain.LLMResponse
	if err := c.do(ctx, fasthttp.MethodGet, "/api/llm/responses/"+id, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListResponses calls GET /api/llm/responses with pagination.
func (c *Client) ListResponses(ctx context.Context, page, limit int) (*transport.PaginatedResponses, error) {
	path := fmt.Sprintf("/api/llm/responses?page=%d&limit=%d", page, limit)
	var out transport.PaginatedResponses
	if err := c.do(ctx, fasthttp.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		req.SetBody(payload)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return err
	}

	status := resp.StatusCode()
	if status >= http.StatusBadRequest {
		var envelope transport.ErrorBody
		if err := json.Unmarshal(resp.Body(), &envelope); err != nil || envelope.Error == "" {
			envelope.Error = "request failed"
		}
		return &APIError{
			Status:  status,
			Message: envelope.Error,
			Details: envelope.Details,
		}
	}

	if out == nil || len(resp.Body()) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Body(), out)
}
