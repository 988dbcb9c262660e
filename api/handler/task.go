package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/notifly/backend/api/transport"
	"github.com/notifly/backend/domain"
	"github.com/notifly/backend/pkg/httpcontext"
	"github.com/notifly/backend/repository"
	llmUC "github.com/notifly/backend/usecase/llm"
	taskUC "github.com/notifly/backend/usecase/task"
)

// recentResponsesPerTask caps the nested responses attached to each task in
// list output.
const recentResponsesPerTask = 5

type TaskHandler struct {
	baseHandler
	tasks *taskUC.UseCase
	llm   *llmUC.UseCase
}

func NewTaskHandler(tasks *taskUC.UseCase, llm *llmUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger, dev bool) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger, dev),
		tasks:       tasks,
		llm:         llm,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /api/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	include := string(ctx.QueryArgs().Peek("include")) == "llm-responses"
	limit := parseInt(string(ctx.QueryArgs().Peek("limit")), 50)
	page := parseInt(string(ctx.QueryArgs().Peek("page")), 1)
	if page < 1 {
		page = 1
	}

	filter := repository.TaskFilter{
		IncludeResponses: include,
		ResponseLimit:    recentResponsesPerTask,
		Limit:            limit,
		Offset:           (page - 1) * limit,
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.tasks.ListTasks(stdCtx, filter)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	h.respondJSON(ctx, http.StatusOK, tasks)
}

// @Summary Get task with all its responses
// @Tags tasks
// @Router /api/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.tasks.GetTask(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, task)
}

// @Summary Create task
// @Tags tasks
// @Router /api/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	var req transport.TaskCreateRequest
	if !h.decodeBody(ctx, &req) {
		return
	}
	if err := transport.Validate(req); err != nil {
		h.respondError(ctx, err)
		return
	}

	task, err := req.Task()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.tasks.CreateTask(stdCtx, task)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusCreated, created)
}

// @Summary Update task (partial)
// @Tags tasks
// @Router /api/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	var req transport.TaskUpdateRequest
	if !h.decodeBody(ctx, &req) {
		return
	}
	if err := transport.Validate(req); err != nil {
		h.respondError(ctx, err)
		return
	}

	fields, err := updateFields(req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.tasks.UpdateTask(stdCtx, pathParam(ctx, "id"), fields)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, updated)
}

// @Summary Delete task
// @Tags tasks
// @Router /api/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.tasks.DeleteTask(stdCtx, pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusNoContent, nil)
}

// @Summary Start LLM processing for a task
// @Tags tasks
// @Router /api/tasks/{id}/process [post]
func (h *TaskHandler) ProcessTask(ctx *fasthttp.RequestCtx) {
	var req transport.ProcessTaskRequest
	if !h.decodeBody(ctx, &req) {
		return
	}
	if err := transport.Validate(req); err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	responseID, err := h.llm.StartTaskProcessing(stdCtx, pathParam(ctx, "id"), req.CustomPrompt, req.Model)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	h.respondJSON(ctx, http.StatusAccepted, transport.ProcessAccepted{
		Message:    "Task processing started",
		ResponseID: responseID,
		Status:     domain.StatusProcessing,
	})
}

// @Summary List a task's responses
// @Tags tasks
// @Router /api/tasks/{id}/responses [get]
func (h *TaskHandler) GetTaskResponses(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	responses, err := h.llm.ListTaskResponses(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if responses == nil {
		responses = []domain.LLMResponse{}
	}
	h.respondJSON(ctx, http.StatusOK, responses)
}

// @Summary Get one response scoped to its task
// @Tags tasks
// @Router /api/tasks/{id}/responses/{responseId} [get]
func (h *TaskHandler) GetTaskResponse(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	response, err := h.llm.GetTaskResponse(stdCtx, pathParam(ctx, "id"), pathParam(ctx, "responseId"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, response)
}

func updateFields(req transport.TaskUpdateRequest) (taskUC.UpdateFields, error) {
	fields := taskUC.UpdateFields{
		Title:          req.Title,
		Description:    req.Description,
		IsEnabled:      req.IsEnabled,
		NotificationID: req.NotificationID,
	}
	if req.ScheduledTime != nil {
		parsed, err := time.Parse(time.RFC3339, *req.ScheduledTime)
		if err != nil {
			return fields, domain.NewError(domain.ErrCodeInvalid, "scheduledTime must be an ISO-8601 timestamp")
		}
		fields.ScheduledTime = &parsed
	}
	if req.RepeatType != nil {
		repeat := domain.RepeatType(*req.RepeatType)
		fields.RepeatType = &repeat
	}
	return fields, nil
}
