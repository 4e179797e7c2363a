package middleware

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

type ContextKey string

const (
	MerchantIDKey ContextKey = "merchant_id"
	BranchIDKey   ContextKey = "branch_id"
	UserIDKey     ContextKey = "user_id"
	UserRoleKey   ContextKey = "user_role"
)

var metadataKeys = map[string]ContextKey{
	"x-merchant-id": MerchantIDKey,
	"x-branch-id":   BranchIDKey,
	"x-user-id":     UserIDKey,
	"x-user-role":   UserRoleKey,
}

// ContextInterceptor copies the tenant and actor headers set by the gateway
// into the request context. The gateway has already verified them.
func ContextInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		return handler(WithMetadata(ctx), req)
	}
}

func WithMetadata(ctx context.Context) context.Context {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx
	}
	for header, key := range metadataKeys {
		if val := md.Get(header); len(val) > 0 && val[0] != "" {
			ctx = context.WithValue(ctx, key, val[0])
		}
	}
	return ctx
}

// ErrorInterceptor converts domain errors returned by handlers into gRPC
// status errors using mapper.
func ErrorInterceptor(mapper func(error) error) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if err != nil {
			return nil, mapper(err)
		}
		return resp, nil
	}
}
