package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	userdomain "auth-service/internal/user/domain"
)

const bearerPrefix = "bearer "

// TokenVerifier resolves a session token to the email it was issued to.
// *service.AuthService satisfies it, so revoked tokens are rejected too.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (userdomain.Email, error)
}

// AuthUnary returns a unary server interceptor that verifies the Bearer token from gRPC
// metadata and stores the caller's email in the context. Methods in publicMethods
// (e.g. grpc.health.v1.Health/Check) run without a token.
func AuthUnary(verifier TokenVerifier, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		token := extractBearer(ctx)
		if token == "" {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		email, err := verifier.VerifyToken(ctx, token)
		if err != nil {
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}
		return handler(WithEmail(ctx, email), req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
