package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/notifly/backend/api/handler"
)

type Handlers struct {
	Task   *apiHandler.TaskHandler
	LLM    *apiHandler.LLMHandler
	Health *apiHandler.HealthHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

// Options carries the middleware chain. General applies to every /api route;
// LLMLimit additionally guards the provider-invoking routes, which carry a
// stricter budget.
type Options struct {
	General  Middleware
	LLMLimit Middleware
	Auth     Middleware
	CORS     Middleware
}

func New(handlers Handlers, opts Options) *router.Router {
	r := router.New()

	api := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return chain(h, opts.Auth, opts.General, opts.CORS)
	}
	llmAPI := func(h fasthttp.RequestHandler) fasthttp.RequestHandler {
		return chain(h, opts.Auth, opts.LLMLimit, opts.General, opts.CORS)
	}

	// Health is unauthenticated but still counts against the general budget.
	r.GET("/health", chain(handlers.Health.Check, opts.General, opts.CORS))

	r.GET("/api/tasks", api(handlers.Task.GetTasks))
	r.POST("/api/tasks", api(handlers.Task.CreateTask))
	r.GET("/api/tasks/{id}", api(handlers.Task.GetTask))
	r.PUT("/api/tasks/{id}", api(handlers.Task.UpdateTask))
	r.DELETE("/api/tasks/{id}", api(handlers.Task.DeleteTask))
	r.POST("/api/tasks/{id}/process", llmAPI(handlers.Task.ProcessTask))
	r.GET("/api/tasks/{id}/responses", api(handlers.Task.GetTaskResponses))
	r.GET("/api/tasks/{id}/responses/{responseId}", api(handlers.Task.GetTaskResponse))

	r.POST("/api/llm/process", llmAPI(handlers.LLM.Process))
	r.GET("/api/llm/responses", llmAPI(handlers.LLM.ListResponses))
	r.GET("/api/llm/responses/{id}", llmAPI(handlers.LLM.GetResponse))

	return r
}

// chain applies middlewares so the first listed runs innermost.
func chain(h fasthttp.RequestHandler, middlewares ...Middleware) fasthttp.RequestHandler {
	for _, mw := range middlewares {
		if mw != nil {
			h = mw(h)
		}
	}
	return h
}
