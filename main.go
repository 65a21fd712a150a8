package main

import (
	"context"
	"discussion/app"
	"discussion/infra/memory"
	"discussion/infra/postgres"
	"discussion/infra/rabbitmq"
	"discussion/internal/middleware"
	"discussion/pkg/aws"
	"discussion/pkg/config"
	"discussion/pkg/directory"
	"discussion/pkg/httperror"
	"discussion/pkg/notify"
	"discussion/pkg/render"
	"discussion/pkg/session"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Request any
type Response any

type HandlerInterface[R Request, Res Response] interface {
	Handle(ctx context.Context, req *R) (*Res, error)
}

func handle[R Request, Res Response](handler HandlerInterface[R, Res]) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req R

		if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
			return writeError(c, httperror.BadRequest(
				"request.invalid_body",
				"Invalid body",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.ParamsParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_path_params",
				"Invalid path params",
				fiber.Map{"error": err.Error()},
			))
		}

		if err := c.QueryParser(&req); err != nil {
			return writeError(c, httperror.BadRequest(
				"request.invalid_query_params",
				"Invalid query params",
				fiber.Map{"error": err.Error()},
			))
		}

		ctx := c.UserContext()

		res, err := handler.Handle(ctx, &req)
		if err != nil {
			return writeError(c, err)
		}

		return c.JSON(res)
	}
}

type services struct {
	repository app.Repository
	dispatcher notify.Dispatcher
	directory  app.UserDirectory
	renderer   app.BodyRenderer
	archive    app.RevisionArchive
	sessions   middleware.SessionResolver

	// checks are reported by /health, keyed by dependency name.
	checks map[string]func(ctx context.Context) bool
}

func newApp(s services) *fiber.App {
	// Handlers and stores keep params and headers past the request, so they
	// must not alias fasthttp's reused buffers.
	fiberApp := fiber.New(fiber.Config{
		Immutable:    true,
		IdleTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Concurrency:  256 * 1024,
	})

	getCommentsHandler := app.NewGetCommentsHandler(s.repository, s.renderer)
	createCommentHandler := app.NewCreateCommentHandler(s.repository, s.dispatcher, s.directory)
	updateCommentHandler := app.NewUpdateCommentHandler(s.repository, s.archive)
	deleteCommentHandler := app.NewDeleteCommentHandler(s.repository, s.dispatcher)
	toggleUpvoteHandler := app.NewToggleUpvoteHandler(s.repository, s.dispatcher, s.directory)
	suggestMentionsHandler := app.NewSuggestMentionsHandler(s.repository)

	fiberApp.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status, code := "ok", fiber.StatusOK
		dependencies := fiber.Map{}
		for name, check := range s.checks {
			if check(ctx) {
				dependencies[name] = "up"
				continue
			}
			dependencies[name] = "down"
			status, code = "degraded", fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{"status": status, "dependencies": dependencies})
	})

	routes := fiberApp.Group("/api/v1", middleware.NewCallerMiddleware(s.sessions))
	routes.Get("/contents/:contentId/comments", handle[app.GetCommentsRequest, app.GetCommentsResponse](getCommentsHandler))
	routes.Post("/contents/:contentId/comments", handle[app.CreateCommentRequest, app.CreateCommentResponse](createCommentHandler))
	routes.Get("/contents/:contentId/mentions", handle[app.SuggestMentionsRequest, app.SuggestMentionsResponse](suggestMentionsHandler))
	routes.Put("/comments/:commentId", handle[app.UpdateCommentRequest, app.UpdateCommentResponse](updateCommentHandler))
	routes.Delete("/comments/:commentId", handle[app.DeleteCommentRequest, app.DeleteCommentResponse](deleteCommentHandler))
	routes.Post("/comments/:commentId/upvote", handle[app.ToggleUpvoteRequest, app.ToggleUpvoteResponse](toggleUpvoteHandler))

	return fiberApp
}

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	appConfig := config.Read()
	zap.L().Info("app starting...")
	zap.L().Info("app config",
		zap.String("port", appConfig.Port),
		zap.String("storeDriver", appConfig.StoreDriver),
		zap.String("serviceName", appConfig.ServiceName),
		zap.Bool("archiveEnabled", appConfig.ArchiveEnabled()),
	)

	checks := map[string]func(ctx context.Context) bool{}

	repository := openRepository(appConfig, checks)
	defer repository.Close()

	dispatcher, closeDispatcher := openDispatcher(appConfig, checks)
	defer closeDispatcher()

	sessions := openSessions(appConfig)
	if sessions != nil {
		defer sessions.Close()
	}

	s := services{
		repository: repository,
		dispatcher: dispatcher,
		directory:  directory.New(repository, appConfig.DirectoryCacheSize, appConfig.DirectoryCacheTTL),
		renderer:   render.NewRenderer(),
		checks:     checks,
	}
	if sessions != nil {
		s.sessions = sessions
	}
	if appConfig.ArchiveEnabled() {
		s.archive = aws.NewS3Archive(aws.NewS3Bucket(appConfig))
	}

	fiberApp := newApp(s)

	go func() {
		if err := fiberApp.Listen(fmt.Sprintf("0.0.0.0:%s", appConfig.Port)); err != nil {
			zap.L().Error("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	zap.L().Info("Server started on port", zap.String("port", appConfig.Port))

	gracefulShutdown(fiberApp)
}

func openRepository(appConfig *config.AppConfig, checks map[string]func(ctx context.Context) bool) app.Repository {
	if appConfig.StoreDriver == config.StoreDriverMemory {
		zap.L().Warn("Using in-memory comment store; data is lost on restart")
		return memory.NewRepository()
	}

	if err := postgres.Migrate(appConfig.PostgresDSN(), appConfig.MigrationsPath); err != nil {
		zap.L().Fatal("Failed to run migrations", zap.Error(err))
	}

	pgRepository := postgres.NewPgRepository(appConfig.PostgresDSN())
	checks["postgres"] = func(ctx context.Context) bool {
		return pgRepository.Ping(ctx) == nil
	}
	return pgRepository
}

func openDispatcher(appConfig *config.AppConfig, checks map[string]func(ctx context.Context) bool) (notify.Dispatcher, func()) {
	if appConfig.RabbitMQURL == "" {
		zap.L().Warn("RABBITMQ_URL is not set; notifications are only logged")
		return notify.LogDispatcher{}, func() {}
	}

	publisher, err := rabbitmq.NewRabbitMQPublisher(appConfig.RabbitMQURL, appConfig.ServiceName)
	if err != nil {
		zap.L().Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
	}

	checks["rabbitmq"] = func(context.Context) bool {
		return publisher.IsHealthy()
	}

	return notify.NewEventDispatcher(publisher, appConfig.ServiceName), func() {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Failed to close publisher", zap.Error(err))
		}
	}
}

func openSessions(appConfig *config.AppConfig) *session.RedisStore {
	if appConfig.RedisURL == "" {
		zap.L().Warn("REDIS_URL is not set; trusting the User-ID header from the gateway")
		return nil
	}

	store, err := session.NewRedisStore(appConfig.RedisURL)
	if err != nil {
		zap.L().Fatal("Failed to connect to session store", zap.Error(err))
	}
	return store
}

func gracefulShutdown(fiberApp *fiber.App) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := fiberApp.ShutdownWithTimeout(5 * time.Second); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}

func writeError(c *fiber.Ctx, err error) error {
	var httpErr *httperror.Error
	if errors.As(err, &httpErr) {
		payload := fiber.Map{
			"success": false,
			"code":    httpErr.Code,
			"error":   httpErr.Message,
		}

		if details := httpErr.PublicDetails(); details != nil {
			payload["details"] = details
		}
		for key, value := range httpErr.Fields {
			payload[key] = value
		}

		if httpErr.Status >= fiber.StatusInternalServerError {
			zap.L().Error("Handler returned server error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		} else {
			zap.L().Warn("Handler returned client error", zap.String("code", httpErr.Code), zap.Error(httpErr))
		}

		return c.Status(httpErr.Status).JSON(payload)
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		zap.L().Warn("Fiber validation error", zap.String("message", fiberErr.Message), zap.Error(err))
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"success": false,
			"code":    "request.invalid",
			"error":   fiberErr.Message,
		})
	}

	zap.L().Error("Unhandled error", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"code":    "internal_server_error",
		"error":   "Internal server error.",
	})
}
