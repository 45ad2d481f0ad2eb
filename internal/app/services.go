package app

import (
	"log/slog"

	"github.com/bsm/redislock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/frescapp/backoffice/internal/closing"
	"github.com/frescapp/backoffice/internal/costing"
	"github.com/frescapp/backoffice/internal/economics"
	"github.com/frescapp/backoffice/internal/inventory"
	"github.com/frescapp/backoffice/internal/invoicing"
	jobmetrics "github.com/frescapp/backoffice/internal/jobs"
	"github.com/frescapp/backoffice/internal/orders"
	"github.com/frescapp/backoffice/internal/purchasing"
	"github.com/frescapp/backoffice/internal/routing"
	"github.com/frescapp/backoffice/internal/sequence"
)

// Services is the wired domain graph shared by the API and the worker.
type Services struct {
	Closing    *closing.Service
	Economics  *economics.Service
	Routing    *routing.Service
	Purchasing *purchasing.Service
}

// NewServices builds every domain service over the shared Postgres pool and Redis client.
func NewServices(cfg *Config, pool *pgxpool.Pool, redisClient *redis.Client, metrics *jobmetrics.Metrics, logger *slog.Logger) *Services {
	var store sequence.Store = sequence.NewPGStore(pool)
	if cfg.SequenceBackend == SequenceBackendRedis {
		store = sequence.NewRedisStore(redisClient)
	}
	seq := sequence.New(store)

	orderRepo := orders.NewRepository(pool)
	purchaseRepo := purchasing.NewRepository(pool)
	snapshotRepo := inventory.NewRepository(pool)
	routeRepo := routing.NewRepository(pool)
	catalogRepo := costing.NewCatalogRepository(pool)
	recordRepo := closing.NewRepository(pool)

	purchaseService := purchasing.NewService(purchaseRepo, orderRepo, snapshotRepo, catalogRepo, seq, logger)
	inventoryService := inventory.NewService(snapshotRepo, purchaseService, purchaseService, logger)
	routeService := routing.NewService(routeRepo, orderRepo, seq, logger)
	economicsService := economics.NewService(economics.NewRepository(pool), orderRepo, routeRepo, purchaseRepo, snapshotRepo, catalogRepo, logger)

	provider := invoicing.NewAlegraClient(invoicing.AlegraConfig{
		BaseURL:          cfg.AlegraURL,
		User:             cfg.AlegraUser,
		Token:            cfg.AlegraToken,
		OrderTemplate:    cfg.AlegraOrderTemplate,
		OrderPrefix:      cfg.AlegraOrderPrefix,
		PurchaseTemplate: cfg.AlegraPurchaseTemplate,
	})
	invoiceService := invoicing.NewService(provider, orderRepo, purchaseRepo, seq, invoicing.Options{
		Delay:   cfg.InvoiceDelay,
		Timeout: cfg.CollaboratorTimeout,
	}, logger)

	saga := closing.NewSaga(closing.Deps{
		Invoicer:  invoiceService,
		Routes:    routeService,
		Purchases: purchaseService,
		Inventory: inventoryService,
		Orders:    orderRepo,
		RouteLog:  routeRepo,
		Spend:     purchaseRepo,
		Stock:     snapshotRepo,
		COGS:      economicsService,
		Records:   recordRepo,
	}, logger,
		closing.WithStepTimeout(cfg.CollaboratorTimeout),
		closing.WithObserver(metrics),
	)
	closingService := closing.NewService(saga, redislock.New(redisClient), cfg.CloseLockTTL,
		recordRepo, snapshotRepo, purchaseRepo, routeRepo, logger)

	return &Services{
		Closing:    closingService,
		Economics:  economicsService,
		Routing:    routeService,
		Purchasing: purchaseService,
	}
}
