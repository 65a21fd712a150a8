package main

import (
	"discussion/app"
	"discussion/infra/grpc"
	"discussion/infra/memory"
	"discussion/infra/postgres"
	"discussion/infra/rabbitmq"
	"discussion/internal/middleware"
	"discussion/pkg/aws"
	"discussion/pkg/config"
	"discussion/pkg/directory"
	"discussion/pkg/notify"
	"discussion/pkg/render"
	"discussion/pkg/session"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Discussion gRPC Service starting...")

	appConfig := config.Read()

	var repository app.Repository
	if appConfig.StoreDriver == config.StoreDriverMemory {
		zap.L().Warn("Using in-memory comment store; data is lost on restart")
		repository = memory.NewRepository()
	} else {
		repository = postgres.NewPgRepository(appConfig.PostgresDSN())
	}
	defer repository.Close()

	var dispatcher notify.Dispatcher = notify.LogDispatcher{}
	if appConfig.RabbitMQURL != "" {
		publisher, err := rabbitmq.NewRabbitMQPublisher(appConfig.RabbitMQURL, appConfig.ServiceName)
		if err != nil {
			zap.L().Fatal("Failed to create RabbitMQ publisher", zap.Error(err))
		}
		defer publisher.Close()
		dispatcher = notify.NewEventDispatcher(publisher, appConfig.ServiceName)
	}

	var resolver middleware.SessionResolver
	if appConfig.RedisURL != "" {
		sessions, err := session.NewRedisStore(appConfig.RedisURL)
		if err != nil {
			zap.L().Fatal("Failed to connect to session store", zap.Error(err))
		}
		defer sessions.Close()
		resolver = sessions
	} else {
		zap.L().Warn("REDIS_URL is not set; trusting user-id metadata from the gateway")
	}

	var archive app.RevisionArchive
	if appConfig.ArchiveEnabled() {
		archive = aws.NewS3Archive(aws.NewS3Bucket(appConfig))
	}

	names := directory.New(repository, appConfig.DirectoryCacheSize, appConfig.DirectoryCacheTTL)

	grpcServer, err := grpc.NewServer(appConfig, resolver)
	if err != nil {
		zap.L().Error("failed to create grpc server", zap.Error(err))
		os.Exit(1)
	}

	grpcServer.RegisterCommentService(grpc.NewCommentServiceServer(grpc.CommentHandlers{
		ListComments:    app.NewGetCommentsHandler(repository, render.NewRenderer()),
		CreateComment:   app.NewCreateCommentHandler(repository, dispatcher, names),
		UpdateComment:   app.NewUpdateCommentHandler(repository, archive),
		DeleteComment:   app.NewDeleteCommentHandler(repository, dispatcher),
		ToggleUpvote:    app.NewToggleUpvoteHandler(repository, dispatcher, names),
		SuggestMentions: app.NewSuggestMentionsHandler(repository),
	}))

	zap.L().Info("starting gRPC server...", zap.String("port", appConfig.GRPCPort))
	go func() {
		if err := grpcServer.Start(); err != nil {
			zap.L().Error("failed to start grpc server", zap.Error(err))
			os.Exit(1)
		}
	}()

	gracefulShutdown(grpcServer)
}

func gracefulShutdown(grpcServer *grpc.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	if err := grpcServer.GracefulStop(); err != nil {
		zap.L().Error("Error during server shutdown", zap.Error(err))
	}

	zap.L().Info("Server gracefully stopped")
}
