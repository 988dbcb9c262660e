package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/notifly/backend/api/transport"
	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/repository/memory"
	"github.com/notifly/backend/usecase"
	llmUC "github.com/notifly/backend/usecase/llm"
	taskUC "github.com/notifly/backend/usecase/task"
)

type stubGateway struct {
	completion *usecase.Completion
	err        error
}

func (g *stubGateway) Complete(ctx context.Context, model, systemPrompt, userPrompt string) (*usecase.Completion, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.completion, nil
}

type fixture struct {
	task      *TaskHandler
	llm       *LLMHandler
	tasks     *memory.TaskStore
	responses *memory.ResponseStore
	gateway   *stubGateway
}

func newHandlers(t *testing.T) *fixture {
	t.Helper()
	responses := memory.NewResponseStore()
	tasks := memory.NewTaskStore(responses)
	gateway := &stubGateway{completion: &usecase.Completion{Text: "done", Tokens: 5, Cost: 0.00001}}

	taskUseCase := taskUC.New(tasks, nil, nil)
	llmUseCase := llmUC.New(tasks, responses, gateway, time.Second, nil)

	return &fixture{
		task:      NewTaskHandler(taskUseCase, llmUseCase, nil, nil, false),
		llm:       NewLLMHandler(llmUseCase, nil, nil, false),
		tasks:     tasks,
		responses: responses,
		gateway:   gateway,
	}
}

func newRequestCtx(method, uri string, body []byte) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}
	ctx := &fasthttp.RequestCtx{}
	ctx.Init(&req, nil, nil)
	return ctx
}

func decodeBody(t *testing.T, ctx *fasthttp.RequestCtx, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(ctx.Response.Body(), out); err != nil {
		t.Fatalf("decode response %q: %v", ctx.Response.Body(), err)
	}
}

func seedTask(t *testing.T, f *fixture) *domain.Task {
	t.Helper()
	task, err := f.tasks.Create(context.Background(), &domain.Task{
		Title:         "Read a chapter",
		Description:   "Current book, one chapter",
		ScheduledTime: time.Now().Add(time.Hour),
		RepeatType:    domain.RepeatNone,
		IsEnabled:     true,
	})
	if err != nil {
		t.Fatalf("seed task: %v", err)
	}
	return task
}

func TestCreateTaskHandler(t *testing.T) {
	f := newHandlers(t)
	body := []byte(`{
		"title": "Read a chapter",
		"description": "Current book, one chapter",
		"scheduledTime": "2026-09-01T20:00:00Z",
		"repeatType": "daily"
	}`)

	ctx := newRequestCtx(fasthttp.MethodPost, "/api/tasks", body)
	f.task.CreateTask(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", got, ctx.Response.Body())
	}
	var created domain.Task
	decodeBody(t, ctx, &created)
	if created.ID == "" {
		t.Fatal("no id assigned")
	}
	if !created.IsEnabled {
		t.Fatal("isEnabled should default to true")
	}
	if created.RepeatType != domain.RepeatDaily {
		t.Fatalf("repeatType = %q", created.RepeatType)
	}
}

func TestCreateTaskHandlerValidation(t *testing.T) {
	f := newHandlers(t)

	cases := []struct {
		name string
		body []byte
	}{
		{"missing fields", []byte(`{"title": "only a title"}`)},
		{"bad repeat", []byte(`{"title":"t","description":"d","scheduledTime":"2026-09-01T20:00:00Z","repeatType":"hourly"}`)},
		{"malformed json", []byte(`{"title": `)},
		{"empty body", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := newRequestCtx(fasthttp.MethodPost, "/api/tasks", tc.body)
			f.task.CreateTask(ctx)
			if got := ctx.Response.StatusCode(); got != http.StatusBadRequest {
				t.Fatalf("status = %d, body = %s", got, ctx.Response.Body())
			}
			var envelope transport.ErrorBody
			decodeBody(t, ctx, &envelope)
			if envelope.Error != "Validation failed" {
				t.Fatalf("error = %q", envelope.Error)
			}
		})
	}
	if f.tasks.Len() != 0 {
		t.Fatal("invalid request reached the store")
	}
}

func TestGetTaskHandlerNotFound(t *testing.T) {
	f := newHandlers(t)
	ctx := newRequestCtx(fasthttp.MethodGet, "/api/tasks/nope", nil)
	ctx.SetUserValue("id", "nope")
	f.task.GetTask(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusNotFound {
		t.Fatalf("status = %d", got)
	}
	var envelope transport.ErrorBody
	decodeBody(t, ctx, &envelope)
	if envelope.Error != "task not found" {
		t.Fatalf("error = %q", envelope.Error)
	}
}

func TestUpdateTaskHandlerPartial(t *testing.T) {
	f := newHandlers(t)
	task := seedTask(t, f)

	ctx := newRequestCtx(fasthttp.MethodPut, "/api/tasks/"+task.ID, []byte(`{"title":"Read two chapters"}`))
	ctx.SetUserValue("id", task.ID)
	f.task.UpdateTask(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusOK {
		t.Fatalf("status = %d, body = %s", got, ctx.Response.Body())
	}
	var updated domain.Task
	decodeBody(t, ctx, &updated)
	if updated.Title != "Read two chapters" {
		t.Fatalf("title = %q", updated.Title)
	}
	if updated.Description != task.Description {
		t.Fatalf("description changed: %q", updated.Description)
	}
}

func TestDeleteTaskHandler(t *testing.T) {
	f := newHandlers(t)
	task := seedTask(t, f)

	ctx := newRequestCtx(fasthttp.MethodDelete, "/api/tasks/"+task.ID, nil)
	ctx.SetUserValue("id", task.ID)
	f.task.DeleteTask(ctx)
	if got := ctx.Response.StatusCode(); got != http.StatusNoContent {
		t.Fatalf("status = %d", got)
	}

	again := newRequestCtx(fasthttp.MethodDelete, "/api/tasks/"+task.ID, nil)
	again.SetUserValue("id", task.ID)
	f.task.DeleteTask(again)
	if got := again.Response.StatusCode(); got != http.StatusNotFound {
		t.Fatalf("second delete status = %d", got)
	}
}

func TestProcessTaskHandlerAccepted(t *testing.T) {
	f := newHandlers(t)
	task := seedTask(t, f)

	ctx := newRequestCtx(fasthttp.MethodPost, "/api/tasks/"+task.ID+"/process", nil)
	ctx.SetUserValue("id", task.ID)
	f.task.ProcessTask(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", got, ctx.Response.Body())
	}
	var accepted transport.ProcessAccepted
	decodeBody(t, ctx, &accepted)
	if accepted.ResponseID == "" {
		t.Fatal("no response id to poll")
	}
	if accepted.Status != domain.StatusProcessing {
		t.Fatalf("status = %q", accepted.Status)
	}

	// The record must be pollable immediately, whatever its current state.
	if _, err := f.responses.GetByID(context.Background(), accepted.ResponseID); err != nil {
		t.Fatalf("record not pollable: %v", err)
	}
}

func TestProcessTaskHandlerMissingTask(t *testing.T) {
	f := newHandlers(t)
	ctx := newRequestCtx(fasthttp.MethodPost, "/api/tasks/nope/process", nil)
	ctx.SetUserValue("id", "nope")
	f.task.ProcessTask(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusNotFound {
		t.Fatalf("status = %d", got)
	}
	if total, _ := f.responses.Count(context.Background()); total != 0 {
		t.Fatal("record created for a missing task")
	}
}

func TestProcessPromptHandler(t *testing.T) {
	f := newHandlers(t)
	ctx := newRequestCtx(fasthttp.MethodPost, "/api/llm/process", []byte(`{"prompt":"Say hi"}`))
	f.llm.Process(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusOK {
		t.Fatalf("status = %d, body = %s", got, ctx.Response.Body())
	}
	var record domain.LLMResponse
	decodeBody(t, ctx, &record)
	if record.Status != domain.StatusCompleted {
		t.Fatalf("status = %q", record.Status)
	}
	if record.Response != "done" {
		t.Fatalf("response = %q", record.Response)
	}
}

func TestProcessPromptHandlerUpstreamFailure(t *testing.T) {
	f := newHandlers(t)
	f.gateway.err = errors.New("provider unavailable")

	ctx := newRequestCtx(fasthttp.MethodPost, "/api/llm/process", []byte(`{"prompt":"Say hi"}`))
	f.llm.Process(ctx)

	// UPSTREAM maps to 500 without leaking provider internals in production.
	if got := ctx.Response.StatusCode(); got != http.StatusInternalServerError {
		t.Fatalf("status = %d", got)
	}
	var envelope transport.ErrorBody
	decodeBody(t, ctx, &envelope)
	if envelope.Error != "Internal server error" {
		t.Fatalf("error = %q, production must not leak details", envelope.Error)
	}
	if envelope.Stack != "" {
		t.Fatal("stack trace leaked in production")
	}
}

func TestListResponsesHandlerPagination(t *testing.T) {
	f := newHandlers(t)
	for i := 0; i < 25; i++ {
		_, err := f.responses.Create(context.Background(), &domain.LLMResponse{
			Prompt: fmt.Sprintf("prompt %d", i),
			Model:  "gpt-3.5-turbo",
			Status: domain.StatusCompleted,
		})
		if err != nil {
			t.Fatalf("seed response %d: %v", i, err)
		}
	}

	ctx := newRequestCtx(fasthttp.MethodGet, "/api/llm/responses?page=1&limit=10", nil)
	f.llm.ListResponses(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusOK {
		t.Fatalf("status = %d", got)
	}
	var page transport.PaginatedResponses
	decodeBody(t, ctx, &page)
	if len(page.Responses) != 10 {
		t.Fatalf("page size = %d", len(page.Responses))
	}
	if page.Pagination.Total != 25 || page.Pagination.Pages != 3 {
		t.Fatalf("pagination = %+v", page.Pagination)
	}

	// Limits beyond the cap clamp to 100; bad values fall back to defaults.
	clamped := newRequestCtx(fasthttp.MethodGet, "/api/llm/responses?limit=5000", nil)
	f.llm.ListResponses(clamped)
	var clampedPage transport.PaginatedResponses
	decodeBody(t, clamped, &clampedPage)
	if clampedPage.Pagination.Limit != 100 {
		t.Fatalf("limit = %d, want clamp to 100", clampedPage.Pagination.Limit)
	}
}

func TestListResponsesHandlerEmpty(t *testing.T) {
	f := newHandlers(t)
	ctx := newRequestCtx(fasthttp.MethodGet, "/api/llm/responses", nil)
	f.llm.ListResponses(ctx)

	var page transport.PaginatedResponses
	decodeBody(t, ctx, &page)
	if page.Responses == nil {
		t.Fatal("responses must be [] on the wire, not null")
	}
	if page.Pagination.Pages != 0 {
		t.Fatalf("pages = %d", page.Pagination.Pages)
	}
}

func TestGetTaskResponsesHandlerScoping(t *testing.T) {
	f := newHandlers(t)
	owner := seedTask(t, f)
	other := seedTask(t, f)

	record, err := f.responses.Create(context.Background(), &domain.LLMResponse{
		TaskID: &owner.ID,
		Model:  "gpt-4",
		Status: domain.StatusCompleted,
	})
	if err != nil {
		t.Fatalf("seed response: %v", err)
	}

	ctx := newRequestCtx(fasthttp.MethodGet, "/api/tasks/"+other.ID+"/responses/"+record.ID, nil)
	ctx.SetUserValue("id", other.ID)
	ctx.SetUserValue("responseId", record.ID)
	f.task.GetTaskResponse(ctx)
	if got := ctx.Response.StatusCode(); got != http.StatusNotFound {
		t.Fatalf("cross-task read status = %d, want 404", got)
	}

	owned := newRequestCtx(fasthttp.MethodGet, "/api/tasks/"+owner.ID+"/responses/"+record.ID, nil)
	owned.SetUserValue("id", owner.ID)
	owned.SetUserValue("responseId", record.ID)
	f.task.GetTaskResponse(owned)
	if got := owned.Response.StatusCode(); got != http.StatusOK {
		t.Fatalf("owner read status = %d", got)
	}
}

func TestGetTasksHandlerEmptyList(t *testing.T) {
	f := newHandlers(t)
	ctx := newRequestCtx(fasthttp.MethodGet, "/api/tasks", nil)
	f.task.GetTasks(ctx)

	if got := ctx.Response.StatusCode(); got != http.StatusOK {
		t.Fatalf("status = %d", got)
	}
	if string(ctx.Response.Body()) != "[]" {
		t.Fatalf("body = %s, want []", ctx.Response.Body())
	}
}
