package auth

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/middleware"
	"google.golang.org/grpc/metadata"
)

type UserContext struct {
	MerchantID string
	BranchID   *string
	UserID     string
	Role       string
}

// WithUserContext stores uc under the same keys middleware.ContextInterceptor
// uses, for callers that do not arrive over gRPC.
func WithUserContext(ctx context.Context, uc UserContext) context.Context {
	set := func(key middleware.ContextKey, val string) {
		if val != "" {
			ctx = context.WithValue(ctx, key, val)
		}
	}
	set(middleware.MerchantIDKey, uc.MerchantID)
	if uc.BranchID != nil {
		set(middleware.BranchIDKey, *uc.BranchID)
	}
	set(middleware.UserIDKey, uc.UserID)
	set(middleware.UserRoleKey, uc.Role)
	return ctx
}

// GetMerchantID reads the tenant set by middleware.ContextInterceptor, falling
// back to the raw incoming metadata.
func GetMerchantID(ctx context.Context) string {
	return lookup(ctx, middleware.MerchantIDKey, "x-merchant-id")
}

// GetBranchID returns nil when the request is not scoped to a branch.
func GetBranchID(ctx context.Context) *string {
	if val := lookup(ctx, middleware.BranchIDKey, "x-branch-id"); val != "" {
		return &val
	}
	return nil
}

func GetUserContext(ctx context.Context) UserContext {
	return UserContext{
		MerchantID: GetMerchantID(ctx),
		BranchID:   GetBranchID(ctx),
		UserID:     lookup(ctx, middleware.UserIDKey, "x-user-id"),
		Role:       lookup(ctx, middleware.UserRoleKey, "x-user-role"),
	}
}

// Actor describes the caller for ledger attribution. Requests without a user
// are attributed to the system.
func Actor(ctx context.Context) model.Actor {
	uc := GetUserContext(ctx)
	if uc.UserID == "" {
		return model.Actor{Type: model.ActorTypeSystem, Role: uc.Role}
	}
	return model.Actor{ID: uc.UserID, Type: model.ActorTypeUser, Role: uc.Role}
}

func lookup(ctx context.Context, key middleware.ContextKey, header string) string {
	if val, ok := ctx.Value(key).(string); ok && val != "" {
		return val
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get(header); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
