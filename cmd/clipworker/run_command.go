package main

import (
	"errors"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/zebadrabbit/Clippy-Front-sub002/internal/compile"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/config"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/deps"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/logging"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/queue"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workerapi"
	"github.com/zebadrabbit/Clippy-Front-sub002/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Claim and process compilation jobs until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			lockPath := filepath.Join(cfg.Paths.LogDir, "clipworker.lock")
			lock := flock.New(lockPath)
			ok, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire worker lock: %w", err)
			}
			if !ok {
				return fmt.Errorf("another clipworker instance holds %s", lockPath)
			}
			defer lock.Unlock() //nolint:errcheck

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			for _, status := range deps.CheckBinaries(deps.Default(cfg)) {
				if status.Available || status.Optional {
					continue
				}
				logger.Warn("required binary missing",
					logging.String("name", status.Name),
					logging.String("detail", status.Detail))
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return ctx.withStore(func(_ *config.Config, store *queue.Store) error {
				client, err := workerapi.New(cfg)
				if err != nil {
					return err
				}

				handler := compile.New(cfg, store, client, logger)
				manager := workflow.NewManager(cfg, store, handler, client, logger)
				if err := manager.Start(runCtx); err != nil {
					return err
				}

				<-runCtx.Done()
				logger.Info("clipworker shutting down")
				manager.Stop()
				if err := manager.LastError(); err != nil && !errors.Is(err, runCtx.Err()) {
					logger.Warn("last job error before shutdown", logging.Error(err))
				}
				return nil
			})
		},
	}
}
