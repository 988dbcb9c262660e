package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/notifly/backend/api/handler"
	"github.com/notifly/backend/internal/config"
	"github.com/notifly/backend/internal/infrastructure/monitor"
	"github.com/notifly/backend/internal/infrastructure/notifier"
	openaiInfra "github.com/notifly/backend/internal/infrastructure/openai"
	pgInfra "github.com/notifly/backend/internal/infrastructure/postgres"
	redisInfra "github.com/notifly/backend/internal/infrastructure/redis"
	"github.com/notifly/backend/internal/middleware"
	"github.com/notifly/backend/internal/notify"
	"github.com/notifly/backend/internal/router"
	"github.com/notifly/backend/internal/services/lifecycle"
	"github.com/notifly/backend/pkg/httpcontext"
	"github.com/notifly/backend/pkg/logger"
	"github.com/notifly/backend/repository"
	"github.com/notifly/backend/repository/postgres"
	llmUC "github.com/notifly/backend/usecase/llm"
	taskUC "github.com/notifly/backend/usecase/task"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	triggerStore, err := notifier.Open(cfg.Notifier.Path, "triggers")
	if err != nil {
		zapLogger.Fatal("failed to open trigger store", zap.Error(err))
	}
	manager.Register("trigger_store", func(ctx context.Context) error {
		return triggerStore.Close()
	})

	localScheduler := notifier.NewLocal(triggerStore, cfg.Notifier.DrainInterval, nil, zapLogger)
	localScheduler.Start()
	manager.Register("notification_dispatcher", func(ctx context.Context) error {
		localScheduler.Stop(ctx)
		return nil
	})

	mon := monitor.New(pool, redisClient, triggerStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	taskRepo := postgres.NewTaskRepository(pool)
	responseRepo := postgres.NewResponseRepository(pool)

	bridge := notify.NewBridge(localScheduler, zapLogger)
	reconcileTriggers(appCtx, bridge, taskRepo, zapLogger)

	gateway := openaiInfra.NewGateway(openaiInfra.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}, zapLogger)

	taskUseCase := taskUC.New(taskRepo, bridge, zapLogger)
	llmUseCase := llmUC.New(taskRepo, responseRepo, gateway, cfg.OpenAI.CallTimeout, zapLogger)

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	dev := cfg.IsDevelopment()

	handlers := router.Handlers{
		Task:   apiHandler.NewTaskHandler(taskUseCase, llmUseCase, ctxAdapter, zapLogger, dev),
		LLM:    apiHandler.NewLLMHandler(llmUseCase, ctxAdapter, zapLogger, dev),
		Health: apiHandler.NewHealthHandler(mon, cfg.Environment, ctxAdapter, zapLogger, dev),
	}

	generalLimiter := middleware.NewRateLimiter(redisClient, "rl:general",
		cfg.RateLimit.Window, cfg.RateLimit.Max,
		"Too many requests from this IP, please try again later.", zapLogger)
	llmLimiter := middleware.NewRateLimiter(redisClient, "rl:llm",
		cfg.RateLimit.LLMWindow, cfg.RateLimit.LLMMax,
		"Too many LLM requests, please try again later.", zapLogger)

	r := router.New(handlers, router.Options{
		General:  generalLimiter.Wrap,
		LLMLimit: llmLimiter.Wrap,
		Auth:     middleware.JWTAuth(cfg.JWT.Secret, zapLogger),
		CORS:     middleware.CORS(cfg.HTTP.AllowedOrigins, dev),
	})

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("environment", cfg.Environment))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}

// reconcileTriggers rebuilds platform triggers from stored tasks after a
// restart and persists any new notification ids.
func reconcileTriggers(ctx context.Context, bridge *notify.Bridge, tasks repository.TaskRepository, zapLogger *zap.Logger) {
	reconcileCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stored, err := tasks.List(reconcileCtx, repository.TaskFilter{Limit: 100})
	if err != nil {
		zapLogger.Warn("trigger reconcile skipped", zap.Error(err))
		return
	}

	rescheduled := bridge.Reconcile(reconcileCtx, stored)
	for i := range stored {
		task := &stored[i]
		id, ok := rescheduled[task.ID]
		if !ok || id == task.NotificationID {
			continue
		}
		task.NotificationID = id
		if err := tasks.Update(reconcileCtx, task); err != nil {
			zapLogger.Warn("failed to persist rescheduled notification id",
				zap.String("task_id", task.ID),
				zap.Error(err))
		}
	}
}
