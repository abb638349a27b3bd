package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// APIKeyMetadata is the metadata key carrying the raw API key
const APIKeyMetadata = "x-api-key"

var unauthenticatedPrefixes = []string{
	"/grpc.health.v1.Health/",
	"/grpc.reflection.",
}

func isExempt(fullMethod string) bool {
	for _, prefix := range unauthenticatedPrefixes {
		if strings.HasPrefix(fullMethod, prefix) {
			return true
		}
	}
	return false
}

// APIKeyFromContext returns the raw API key sent with an incoming call
func APIKeyFromContext(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(APIKeyMetadata); len(values) > 0 {
		return strings.TrimSpace(values[0])
	}
	return ""
}

// AuthUnaryInterceptor authenticates every call except health and
// reflection, and stores the principal in the request context.
func AuthUnaryInterceptor(auth authorization.AuthenticatorInterface) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isExempt(info.FullMethod) {
			return handler(ctx, req)
		}

		principal, err := auth.Authenticate(ctx, APIKeyFromContext(ctx))
		if err != nil {
			return nil, toStatus(err)
		}
		return handler(authorization.WithPrincipal(ctx, principal), req)
	}
}

// LoggingUnaryInterceptor writes one log line per call
func LoggingUnaryInterceptor(log zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := status.Code(err)
		event := log.Info()
		if err != nil {
			event = log.Warn().Err(err)
		}
		event.
			Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Msg("grpc call")

		return resp, err
	}
}
