// Package app wires configuration into the minting pipeline. Both the HTTP
// server and the CLI build their services here.
package app

import (
	"context"
	"errors"
	"fmt"

	"bootcamp-cert-minter/internal/assets"
	"bootcamp-cert-minter/internal/certificate"
	"bootcamp-cert-minter/internal/config"
	"bootcamp-cert-minter/internal/database"
	"bootcamp-cert-minter/internal/pinata"
	"bootcamp-cert-minter/internal/registry"
	"bootcamp-cert-minter/internal/services"
	"bootcamp-cert-minter/internal/supabase"

	"go.uber.org/zap"
)

type App struct {
	Config   *config.Config
	Assets   *assets.Store
	Registry *registry.Client
	DB       *supabase.DatabaseClient
	Supabase *supabase.Client
	Minter   *services.MinterService
	Batch    *services.BatchService
	logger   *zap.Logger
}

// New validates the ledger and pinning settings, loads the assets, dials
// the ledger node and builds the services. Missing assets and an
// unreachable node are fatal. The database and
// Supabase are optional: when unset or failing they are skipped with a
// warning and the pipeline runs without history, previews or events.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	store, err := assets.Load(cfg.AssetsDir)
	if err != nil {
		return nil, err
	}

	reg, err := registry.Dial(ctx, registry.Options{
		ProviderURI:     cfg.Web3ProviderURI,
		ContractAddress: cfg.SmartContractAddress,
		ABIPath:         cfg.ContractABIPath,
		GasLimit:        cfg.GasLimit,
		PollInterval:    cfg.ReceiptPollInterval,
		Timeout:         cfg.LedgerTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Assets:   store,
		Registry: reg,
		logger:   logger,
	}

	var (
		history  services.HistoryRecorder
		previews services.PreviewStore
		events   services.EventPublisher
	)

	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, mint history disabled")
	} else if db, err := a.openDatabase(ctx); err != nil {
		logger.Warn("Database unavailable, mint history disabled", zap.Error(err))
	} else {
		a.DB = db
		history = db
	}

	sb, err := supabase.NewClient(cfg)
	switch {
	case errors.Is(err, supabase.ErrNotConfigured):
		logger.Info("Supabase not configured, preview storage and events disabled")
	case err != nil:
		logger.Warn("Failed to initialize Supabase, preview storage and events disabled", zap.Error(err))
	default:
		a.Supabase = sb
		previews = sb.Storage
		events = sb.Realtime
	}

	pinner := pinata.NewClient(cfg.PinataBaseURL, cfg.PinataAPIKey, cfg.PinataSecretAPIKey, cfg.PinningTimeout)
	a.Minter = services.NewMinterService(
		certificate.NewComposer(store),
		pinner,
		reg,
		history,
		previews,
		events,
		cfg.IPFSGatewayURL,
		logger,
	)
	a.Batch = services.NewBatchService(a.Minter, services.NewHTTPFetcher(cfg.FetchTimeout), store.Placeholder(), events, logger)

	return a, nil
}

func (a *App) openDatabase(ctx context.Context) (*supabase.DatabaseClient, error) {
	db, err := supabase.NewDatabaseClient(a.Config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	applied, err := database.NewMigrator(db.DB(), a.logger).Run(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.logger.Info("Migrations completed", zap.Int("applied", applied))
	return db, nil
}

func (a *App) Close() {
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
	a.Registry.Close()
}
