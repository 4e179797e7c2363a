package app

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/attribute"
	attrRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/attribute/repository"
	attrUCPkg "github.com/fekuna/omnipos-inventory-service/internal/attribute/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/database"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	invRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invUCPkg "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/metrics"
	"github.com/fekuna/omnipos-inventory-service/internal/notification"
	notifRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/notification/repository"
	notifUCPkg "github.com/fekuna/omnipos-inventory-service/internal/notification/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/order"
	orderRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/order/repository"
	orderUCPkg "github.com/fekuna/omnipos-inventory-service/internal/order/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/product"
	prodRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/product/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/storage/memory"
	"github.com/fekuna/omnipos-inventory-service/internal/variant"
	variantRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/variant/repository"
	variantUCPkg "github.com/fekuna/omnipos-inventory-service/internal/variant/usecase"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/jmoiron/sqlx"
)

// Repositories is one storage backend together with its unit of work.
type Repositories struct {
	Products      product.Repository
	Attributes    attribute.Repository
	Variants      variant.Repository
	Inventory     inventory.Repository
	Orders        order.Repository
	Notifications notification.Repository
	Tx            database.Transactor
}

func PostgresRepositories(db *sqlx.DB) Repositories {
	return Repositories{
		Products:      prodRepoPkg.NewPGRepository(db),
		Attributes:    attrRepoPkg.NewPGRepository(db),
		Variants:      variantRepoPkg.NewPGRepository(db),
		Inventory:     invRepoPkg.NewPGRepository(db),
		Orders:        orderRepoPkg.NewPGRepository(db),
		Notifications: notifRepoPkg.NewPGRepository(db),
		Tx:            database.NewTxManager(db),
	}
}

func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Products:      store.Products(),
		Attributes:    store.Attributes(),
		Variants:      store.Variants(),
		Inventory:     store.Inventory(),
		Orders:        store.Orders(),
		Notifications: store.Notifications(),
		Tx:            store,
	}
}

// Options carries the optional infrastructure. Every nil field disables the
// feature that uses it.
type Options struct {
	Cache      *cache.RedisClient
	Locker     orderUCPkg.Locker
	LockTTL    time.Duration
	Indexer    variant.Indexer
	Mailer     notification.Mailer
	Recipients notification.RecipientResolver
	Locale     string
	Metrics    *metrics.Metrics
	Variant    variantUCPkg.Options
}

type Services struct {
	Attributes    attribute.UseCase
	Variants      variant.UseCase
	Inventory     inventory.UseCase
	Orders        order.UseCase
	Notifications notification.UseCase
}

func NewServices(repos Repositories, opts Options, log logger.ZapLogger) *Services {
	notifUC := notifUCPkg.NewNotificationUseCase(repos.Notifications, opts.Mailer, opts.Recipients, opts.Metrics, opts.Locale, log)
	invUC := invUCPkg.NewInventoryUseCase(repos.Inventory, repos.Tx, notifUC, opts.Metrics, log)
	attrUC := attrUCPkg.NewAttributeUseCase(repos.Attributes, repos.Tx, opts.Cache, log)
	variantUC := variantUCPkg.NewVariantUseCase(repos.Variants, repos.Products, attrUC, invUC, repos.Tx, opts.Indexer, opts.Metrics, opts.Variant, log)
	orderUC := orderUCPkg.NewOrderUseCase(repos.Orders, repos.Variants, invUC, repos.Tx, opts.Locker, opts.LockTTL, opts.Metrics, log)

	return &Services{
		Attributes:    attrUC,
		Variants:      variantUC,
		Inventory:     invUC,
		Orders:        orderUC,
		Notifications: notifUC,
	}
}
