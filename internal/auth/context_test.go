package auth

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/metadata"
)

func TestContextFromInterceptor(t *testing.T) {
	md := metadata.Pairs(
		"x-merchant-id", "merchant-1",
		"x-branch-id", "branch-1",
		"x-user-id", "user-1",
		"x-user-role", "owner",
	)
	ctx := middleware.WithMetadata(metadata.NewIncomingContext(context.Background(), md))

	assert.Equal(t, "merchant-1", GetMerchantID(ctx))
	require.NotNil(t, GetBranchID(ctx))
	assert.Equal(t, "branch-1", *GetBranchID(ctx))

	actor := Actor(ctx)
	assert.Equal(t, "user-1", actor.ID)
	assert.Equal(t, model.ActorTypeUser, actor.Type)
	assert.True(t, actor.IsPrivileged())
}

func TestContextFallsBackToMetadata(t *testing.T) {
	md := metadata.Pairs("x-merchant-id", "merchant-2")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	assert.Equal(t, "merchant-2", GetMerchantID(ctx))
	assert.Nil(t, GetBranchID(ctx))
	assert.Equal(t, model.Actor{Type: model.ActorTypeSystem}, Actor(ctx))
}

func TestEmptyContext(t *testing.T) {
	uc := GetUserContext(context.Background())
	assert.Empty(t, uc.MerchantID)
	assert.Empty(t, uc.UserID)
	assert.Nil(t, uc.BranchID)
}

func TestWithUserContext(t *testing.T) {
	branch := "branch-3"
	ctx := WithUserContext(context.Background(), UserContext{
		MerchantID: "merchant-3",
		BranchID:   &branch,
		UserID:     "user-3",
	})

	uc := GetUserContext(ctx)
	assert.Equal(t, "merchant-3", uc.MerchantID)
	require.NotNil(t, uc.BranchID)
	assert.Equal(t, "branch-3", *uc.BranchID)
	assert.Equal(t, model.Actor{ID: "user-3", Type: model.ActorTypeUser}, Actor(ctx))
}
