package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/atvirokodosprendimai/grocerydb/internal/app"
	"github.com/urfave/cli/v3"
)

func dbPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "db-path",
		Value:   "./grocerydb.sqlite",
		Sources: cli.EnvVars("GROCERYDB_DB_PATH"),
		Usage:   "SQLite file path",
	}
}

func main() {
	cmd := &cli.Command{
		Name:           "grocerydb",
		Usage:          "SQLite-backed grocery and store catalogue API",
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the outbox dispatcher",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Sources: cli.EnvVars("GROCERYDB_ADDR"),
				Usage:   "HTTP listen address",
			},
			dbPathFlag(),
			&cli.StringFlag{
				Name:    "bootstrap-api-key",
				Sources: cli.EnvVars("GROCERYDB_BOOTSTRAP_API_KEY"),
				Usage:   "Optional API key to upsert at startup",
			},
			&cli.StringFlag{
				Name:    "bootstrap-key-name",
				Value:   "bootstrap",
				Sources: cli.EnvVars("GROCERYDB_BOOTSTRAP_KEY_NAME"),
				Usage:   "Name for bootstrap API key, recorded as the actor of its mutations",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("GROCERYDB_WEBHOOK_URL"),
				Usage:   "Webhook receiving every change event not claimed by an aggregate-specific webhook",
			},
			&cli.StringFlag{
				Name:    "grocery-webhook-url",
				Sources: cli.EnvVars("GROCERYDB_GROCERY_WEBHOOK_URL"),
				Usage:   "Webhook receiving grocery change events",
			},
			&cli.StringFlag{
				Name:    "store-webhook-url",
				Sources: cli.EnvVars("GROCERYDB_STORE_WEBHOOK_URL"),
				Usage:   "Webhook receiving store change events",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("GROCERYDB_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for outbound webhook requests",
			},
			&cli.DurationFlag{
				Name:    "dispatch-interval",
				Value:   2 * time.Second,
				Sources: cli.EnvVars("GROCERYDB_DISPATCH_INTERVAL"),
				Usage:   "Outbox polling interval",
			},
			&cli.IntFlag{
				Name:    "dispatch-batch",
				Value:   100,
				Sources: cli.EnvVars("GROCERYDB_DISPATCH_BATCH"),
				Usage:   "Maximum outbox events published per poll",
			},
			&cli.BoolFlag{
				Name:    "log-sql",
				Sources: cli.EnvVars("GROCERYDB_LOG_SQL"),
				Usage:   "Log every SQL statement",
			},
		},
		Action: serve,
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply pending schema migrations and exit",
		Flags: []cli.Flag{dbPathFlag()},
		Action: func(ctx context.Context, c *cli.Command) error {
			version, err := app.Migrate(ctx, c.String("db-path"))
			if err != nil {
				return err
			}
			log.Printf("schema at version %d", version)
			return nil
		},
	}
}

func serve(ctx context.Context, c *cli.Command) error {
	cfg := app.Config{
		Addr:             c.String("addr"),
		DBPath:           c.String("db-path"),
		BootstrapAPIKey:  c.String("bootstrap-api-key"),
		BootstrapKeyName: c.String("bootstrap-key-name"),
		DispatchInterval: c.Duration("dispatch-interval"),
		DispatchBatch:    int(c.Int("dispatch-batch")),
		LogSQL:           c.Bool("log-sql"),

		WebhookURL:        c.String("webhook-url"),
		GroceryWebhookURL: c.String("grocery-webhook-url"),
		StoreWebhookURL:   c.String("store-webhook-url"),
		WebhookSecret:     c.String("webhook-secret"),
	}

	server, closer, err := app.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	defer func() {
		if closeErr := closer.Close(); closeErr != nil {
			log.Printf("close resources: %v", closeErr)
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		log.Printf("received signal %s", sig)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
