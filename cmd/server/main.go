package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/liamcoop/ruleseditor/decisiontable"
	"github.com/liamcoop/ruleseditor/internal/config"
	"github.com/liamcoop/ruleseditor/internal/logger"
	"github.com/liamcoop/ruleseditor/registry"
	"github.com/liamcoop/ruleseditor/rules"
	"github.com/liamcoop/ruleseditor/workbook"
)

// buildRegistry creates one service per configured table on the configured store
func buildRegistry(ctx context.Context, cfg *config.Config) (*registry.Registry, *sql.DB, error) {
	var validatorOpts []decisiontable.ValidatorOption
	if cfg.StrictExpressions {
		validatorOpts = append(validatorOpts, decisiontable.WithStrictExpressions())
	}
	validator, err := decisiontable.NewValidator(validatorOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create validator: %w", err)
	}

	var db *sql.DB
	if cfg.Store == config.StorePostgres {
		db, err = openDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
	}

	reg := registry.New()
	for _, tc := range cfg.TableList() {
		store, err := newStore(cfg.Store, tc, db)
		if err != nil {
			return nil, db, fmt.Errorf("failed to create store for %s: %w", tc.Name, err)
		}
		svc := rules.NewService(tc.Name, store, validator,
			rules.WithCache(rules.NewInMemoryTableCache(rules.CacheConfig{TTL: cfg.CacheTTL})))
		if err := reg.Register(svc); err != nil {
			return nil, db, err
		}
	}
	if err := reg.SetDefault(cfg.DefaultTable); err != nil {
		return nil, db, err
	}

	return reg, db, nil
}

func newStore(kind string, tc config.TableConfig, db *sql.DB) (rules.TableStore, error) {
	switch kind {
	case config.StorePostgres:
		return rules.NewPostgresTableStore(db, tc.Name), nil
	case config.StoreMemory:
		// Seeded from the workbook when one exists
		var seed *decisiontable.DecisionTable
		if tc.Path != "" {
			table, _, err := workbook.ReadFile(tc.Path)
			switch {
			case err == nil:
				seed = table
			case errors.Is(err, os.ErrNotExist):
			default:
				return nil, err
			}
		}
		return rules.NewInMemoryTableStore(seed), nil
	default:
		if tc.Path == "" {
			return nil, fmt.Errorf("table %s has no workbook path", tc.Name)
		}
		return rules.NewFileTableStore(tc.Path), nil
	}
}

func openDatabase(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal("invalid log level", "error", err)
	}
	if err := logger.Setup(ctx, logger.Options{
		Level:       level,
		SampleRate:  cfg.ErrorSampleRate,
		OTelEnabled: cfg.OTelEnabled,
		ServiceName: cfg.OTelServiceName,
	}); err != nil {
		logger.Warn("falling back to JSON logging", "error", err)
	}

	reg, db, err := buildRegistry(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to create server", "error", err)
	}
	if db != nil {
		defer db.Close()
	}
	logger.Info("tables registered", "store", cfg.Store, "tables", reg.List(), "default", reg.DefaultName())

	server := NewServer(reg, db, cfg.Store, cfg.CORSOrigins)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if err := logger.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "logger shutdown error: %v\n", err)
	}

	logger.Info("server stopped")
}
