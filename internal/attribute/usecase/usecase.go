package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperror"
	"github.com/fekuna/omnipos-inventory-service/internal/attribute"
	"github.com/fekuna/omnipos-inventory-service/internal/attribute/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheTTL = 5 * time.Minute

type attributeUseCase struct {
	repo   attribute.Repository
	tx     database.Transactor
	cache  *cache.RedisClient
	logger logger.ZapLogger
}

// NewAttributeUseCase builds the attribute catalog. cache may be nil.
func NewAttributeUseCase(repo attribute.Repository, tx database.Transactor, cache *cache.RedisClient, log logger.ZapLogger) attribute.UseCase {
	return &attributeUseCase{
		repo:   repo,
		tx:     tx,
		cache:  cache,
		logger: log,
	}
}

// EnsureAttribute returns the catalog row for name, creating it when no
// case-insensitive match exists. Joins the caller's transaction.
func (uc *attributeUseCase) EnsureAttribute(ctx context.Context, merchantID, name string) (*model.Attribute, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("attribute name is required")
	}

	existing, err := uc.repo.FindByName(ctx, merchantID, name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	attr, err := uc.repo.Create(ctx, &model.Attribute{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID: merchantID,
		Name:       name,
	})
	if err != nil {
		return nil, err
	}
	uc.invalidateAfterCommit(ctx, merchantID)
	return attr, nil
}

func (uc *attributeUseCase) EnsureValue(ctx context.Context, attr *model.Attribute, value string) (*model.AttributeValue, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperror.Validation("attribute value is required").WithDetail("attribute", attr.Name)
	}

	existing, err := uc.repo.FindValue(ctx, attr.ID, value)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	now := time.Now()
	v, err := uc.repo.CreateValue(ctx, &model.AttributeValue{
		BaseModel:   model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		AttributeID: attr.ID,
		Value:       value,
	})
	if err != nil {
		return nil, err
	}
	uc.invalidateAfterCommit(ctx, attr.MerchantID)
	return v, nil
}

func (uc *attributeUseCase) CreateAttribute(ctx context.Context, input *dto.CreateAttributeInput) (*model.Attribute, error) {
	if err := apperror.ValidateStruct(input); err != nil {
		return nil, err
	}

	var attr *model.Attribute
	err := uc.tx.WithinTx(ctx, func(ctx context.Context) error {
		existing, err := uc.repo.FindByName(ctx, input.MerchantID, strings.TrimSpace(input.Name))
		if err != nil {
			return err
		}
		if existing != nil {
			return apperror.Conflict("attribute already exists").WithDetail("name", existing.Name)
		}
		attr, err = uc.EnsureAttribute(ctx, input.MerchantID, input.Name)
		if err != nil {
			return err
		}

		seen := make(map[string]bool, len(input.Values))
		for _, raw := range input.Values {
			key := strings.ToLower(strings.TrimSpace(raw))
			if seen[key] {
				continue
			}
			seen[key] = true

			v, err := uc.EnsureValue(ctx, attr, raw)
			if err != nil {
				return err
			}
			attr.Values = append(attr.Values, *v)
		}
		return nil
	})
	if err != nil {
		if apperror.Code(err) == apperror.CodeInternal {
			uc.logger.Error("Failed to create attribute", zap.String("name", input.Name), zap.Error(err))
		}
		return nil, apperror.Wrap(err)
	}
	return attr, nil
}

func (uc *attributeUseCase) ListAttributes(ctx context.Context, merchantID string) ([]model.Attribute, error) {
	key := cacheKey(merchantID)
	if uc.cache != nil {
		val, err := uc.cache.Client.Get(ctx, key).Result()
		if err == nil {
			var attrs []model.Attribute
			if err := json.Unmarshal([]byte(val), &attrs); err == nil {
				return attrs, nil
			}
		} else if err != redis.Nil {
			uc.logger.Warn("Attribute cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	attrs, err := uc.repo.ListByMerchant(ctx, merchantID)
	if err != nil {
		uc.logger.Error("Failed to list attributes", zap.String("merchant_id", merchantID), zap.Error(err))
		return nil, apperror.Internal(err)
	}

	if uc.cache != nil {
		if data, err := json.Marshal(attrs); err == nil {
			uc.cache.Client.Set(ctx, key, data, cacheTTL)
		}
	}
	return attrs, nil
}

func (uc *attributeUseCase) invalidateAfterCommit(ctx context.Context, merchantID string) {
	if uc.cache == nil {
		return
	}
	database.AfterCommit(ctx, func() {
		go uc.invalidateCache(context.Background(), merchantID)
	})
}

func (uc *attributeUseCase) invalidateCache(ctx context.Context, merchantID string) {
	if err := uc.cache.Client.Del(ctx, cacheKey(merchantID)).Err(); err != nil {
		uc.logger.Warn("Failed to invalidate attribute cache", zap.String("merchant_id", merchantID), zap.Error(err))
	}
}

func cacheKey(merchantID string) string {
	return "attributes:" + merchantID
}
