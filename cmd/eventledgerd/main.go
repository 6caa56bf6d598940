// Command eventledgerd hosts an event store process: it loads configuration,
// wires a catalog, clock, adapter and projector into a store, and exposes a
// minimal HTTP surface for health and introspection. It registers no event
// types of its own — callers embedding pkg/eventstore register their own
// catalog; this binary is the reference host for the engine and its
// adapters.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/eventledger/pkg/adapter"
	"github.com/codeready-toolchain/eventledger/pkg/adapter/memory"
	"github.com/codeready-toolchain/eventledger/pkg/adapter/postgres"
	"github.com/codeready-toolchain/eventledger/pkg/catalog"
	"github.com/codeready-toolchain/eventledger/pkg/config"
	"github.com/codeready-toolchain/eventledger/pkg/eventstore"
	"github.com/codeready-toolchain/eventledger/pkg/hlc"
	"github.com/codeready-toolchain/eventledger/pkg/projector"
	"github.com/codeready-toolchain/eventledger/pkg/record"
)

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func main() {
	configPath := flag.String("config", getEnv("EVENTLEDGER_CONFIG", "./config.yaml"), "path to configuration file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
		log.Printf("continuing with existing environment variables...")
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	gin.SetMode(getEnv("GIN_MODE", "release"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	clock := hlc.New(hlc.Config{
		MaxOffset:            cfg.HLC.MaxOffset,
		TimeUpperBound:       cfg.HLC.TimeUpperBound,
		ToleratedForwardJump: cfg.HLC.ToleratedForwardJump,
	})
	cat := catalog.New()
	factory := record.NewFactory(cat, clock)
	proj := projector.New(slog.Default())

	var (
		ad       *adapter.Adapter
		pgPool   *postgres.Pool
		snapshot eventstore.SnapshotPolicy
	)

	switch cfg.Adapter.Kind {
	case "postgres":
		ad, pgPool, err = postgres.Open(ctx, postgres.Config{
			DSN:             cfg.Adapter.Postgres.DSN,
			MaxConns:        cfg.Adapter.Postgres.MaxConns,
			MigrationsTable: cfg.Adapter.Postgres.MigrationsTable,
		})
		if err != nil {
			log.Fatalf("failed to connect to postgres adapter: %v", err)
		}
		defer pgPool.Close()
		log.Println("connected to postgres adapter")
	default:
		ad = memory.New()
		log.Println("using in-memory adapter")
	}

	if cfg.Store.Snapshot == "auto" {
		snapshot = eventstore.SnapshotAuto
	} else {
		snapshot = eventstore.SnapshotManual
	}

	store := eventstore.New(eventstore.Config{
		Catalog:        cat,
		Factory:        factory,
		Adapter:        ad,
		Projector:      proj,
		SnapshotPolicy: snapshot,
		Hooks: eventstore.Hooks{
			OnError: func(err error) {
				slog.Error("event store error", "error", err)
			},
		},
	})

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"adapter": cfg.Adapter.Kind,
		}
		if pgPool != nil {
			stat := pgPool.Stat()
			body["postgres"] = gin.H{
				"total_conns":    stat.TotalConns(),
				"idle_conns":     stat.IdleConns(),
				"acquired_conns": stat.AcquiredConns(),
			}
		}
		c.JSON(http.StatusOK, body)
	})

	router.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"adapter":          cfg.Adapter.Kind,
			"snapshot_policy":  cfg.Store.Snapshot,
			"registered_types": cat.Len(),
		})
	})

	srv := &http.Server{
		Addr:    ":" + httpPort,
		Handler: router,
	}

	go func() {
		log.Printf("HTTP server listening on :%s", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	_ = store // store is the engine's entry point for embedding applications

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("error during HTTP shutdown: %v", err)
	}
}
