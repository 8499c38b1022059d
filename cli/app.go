package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dropsort/config"
	"dropsort/linkart"
	"dropsort/scan"
	"dropsort/storage"
	"dropsort/transfer"
)

// app holds what a command needs after config and ledger are open.
type app struct {
	cfg     *config.AppConfig
	dataDir string
	store   *storage.Store
	service *transfer.Service
	logger  zerolog.Logger
}

func openApp(cmd *cobra.Command) (*app, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	if dataDir == "" {
		resolved, err := config.ResolveDataDir()
		if err != nil {
			return nil, err
		}
		dataDir = resolved
	}

	cfg, _, err := config.LoadOrCreateIn(dataDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, dbPath, err := storage.Open(dataDir)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	logger := log.Logger.With().Str("instance", cfg.InstanceName).Logger()
	logger.Debug().Str("data_dir", dataDir).Str("ledger", dbPath).Msg("opened data directory")

	options := transfer.ServiceOptions{
		Ledger:        store,
		UploadDir:     cfg.UploadDir,
		PublicBaseURL: cfg.PublicBaseURL,
		MaxAttempts:   cfg.MaxAttempts,
		Renderer:      linkart.NewQRRenderer(cfg.QRSize),
		Logger:        logger,
	}
	if cfg.Scanner != config.ScannerNone {
		options.Scanner = scan.New(cfg.Scanner)
	}

	service, err := transfer.NewService(options)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{
		cfg:     cfg,
		dataDir: dataDir,
		store:   store,
		service: service,
		logger:  logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close ledger")
	}
}
