package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/events"
	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/httpapi"
	sqliteadapter "github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/domain"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/ports"
	"github.com/atvirokodosprendimai/grocerydb/internal/core/usecase"
	"github.com/atvirokodosprendimai/grocerydb/migrations"
)

type Config struct {
	Addr             string        `validate:"required"`
	DBPath           string        `validate:"required"`
	BootstrapAPIKey  string        `validate:"omitempty,min=8"`
	BootstrapKeyName string        `validate:"required_with=BootstrapAPIKey"`
	DispatchInterval time.Duration `validate:"gt=0"`
	DispatchBatch    int           `validate:"gt=0,max=1000"`
	LogSQL           bool

	// WebhookURL receives every change event unless GroceryWebhookURL or
	// StoreWebhookURL claims the aggregate. With no URL set, events are logged.
	WebhookURL        string `validate:"omitempty,url"`
	GroceryWebhookURL string `validate:"omitempty,url"`
	StoreWebhookURL   string `validate:"omitempty,url"`
	WebhookSecret     string `validate:"required_with=WebhookURL GroceryWebhookURL StoreWebhookURL"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

type resourceCloser struct {
	closers []io.Closer
}

func (r resourceCloser) Close() error {
	var firstErr error
	for _, c := range r.closers {
		if c == nil {
			continue
		}
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Migrate opens the database at dbPath, applies pending migrations and
// returns the resulting schema version.
func Migrate(ctx context.Context, dbPath string) (int64, error) {
	db, err := openMigrated(ctx, dbPath, gormsqlite.Options{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Printf("close sqlite: %v", closeErr)
		}
	}()

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		return 0, fmt.Errorf("resolve writer sql db: %w", err)
	}
	return migrations.Version(ctx, writeSQLDB)
}

func openMigrated(ctx context.Context, dbPath string, opts gormsqlite.Options) (*gormsqlite.DB, error) {
	db, err := gormsqlite.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(ctx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	db, err := openMigrated(ctx, cfg.DBPath, gormsqlite.Options{LogSQL: cfg.LogSQL})
	if err != nil {
		return nil, nil, err
	}

	groceryRepo := sqliteadapter.NewGroceryRepository(db)
	storeRepo := sqliteadapter.NewStoreRepository(db)
	apiKeyRepo := sqliteadapter.NewAPIKeyRepository(db)
	auditTrailRepo := sqliteadapter.NewAuditTrailRepository(db)
	outboxRepo := sqliteadapter.NewOutboxRepository(db)

	groceryService := usecase.NewGroceryService(groceryRepo)
	storeService := usecase.NewStoreService(storeRepo)
	authService := usecase.NewAuthService(apiKeyRepo)
	auditService := usecase.NewAuditService(auditTrailRepo)

	if cfg.BootstrapAPIKey != "" {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 5*time.Second)
		_, err := authService.Bootstrap(bootstrapCtx, cfg.BootstrapAPIKey, cfg.BootstrapKeyName)
		bootstrapCancel()
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("bootstrap api key: %w", err)
		}
	}

	dispatcher := usecase.NewOutboxDispatcher(outboxRepo, newPublisher(cfg), cfg.DispatchInterval, cfg.DispatchBatch)
	dispatcher.Start(context.Background())

	handler := httpapi.NewHandler(groceryService, storeService, authService, auditService)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, resourceCloser{closers: []io.Closer{dispatcher, db}}, nil
}

// newPublisher routes change events per aggregate: a dedicated webhook when
// one is configured, otherwise the shared webhook, otherwise the log.
func newPublisher(cfg Config) ports.EventPublisher {
	webhook := func(url string) ports.EventPublisher {
		if url == "" {
			return nil
		}
		log.Printf("outbox events will be delivered to %s", url)
		return events.NewWebhookPublisher(url, cfg.WebhookSecret, 0)
	}

	var fallback ports.EventPublisher = events.NewLogPublisher(nil)
	if p := webhook(cfg.WebhookURL); p != nil {
		fallback = p
	}
	return events.NewAggregateRouter(fallback).
		Route(domain.AggregateGrocery, webhook(cfg.GroceryWebhookURL)).
		Route(domain.AggregateStore, webhook(cfg.StoreWebhookURL))
}
