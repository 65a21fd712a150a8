package grpc

import (
	"context"
	"discussion/app"
	"discussion/internal/middleware"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)

	fields := []zap.Field{
		zap.String("method", info.FullMethod),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		zap.L().Warn("gRPC request failed", append(fields, zap.String("code", status.Code(err).String()), zap.Error(err))...)
	} else {
		zap.L().Info("gRPC request handled", fields...)
	}
	return resp, err
}

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("Recovered from panic",
				zap.String("method", info.FullMethod),
				zap.Any("panic", r),
			)
			err = status.Error(codes.Internal, "internal error")
		}
	}()
	return handler(ctx, req)
}

// authInterceptor resolves the "authorization" metadata into the caller
// identity. Without a resolver the "user-id" metadata set by the gateway is
// trusted.
func authInterceptor(resolver middleware.SessionResolver) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		md, _ := metadata.FromIncomingContext(ctx)

		var userID string
		if resolver == nil {
			userID = first(md, "user-id")
		} else {
			var err error
			userID, err = middleware.ResolveCaller(ctx, resolver, first(md, "authorization"))
			if err != nil {
				return nil, toStatus(err)
			}
		}

		if userID != "" {
			ctx = app.WithCallerID(ctx, userID)
		}
		return handler(ctx, req)
	}
}

func first(md metadata.MD, key string) string {
	if values := md.Get(key); len(values) > 0 {
		return values[0]
	}
	return ""
}
