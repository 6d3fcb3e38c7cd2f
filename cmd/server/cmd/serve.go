// cmd/server/cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"termsync/internal/app/server/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить HTTP-сервер синхронизации",
	Long: `Поднимает HTTP API и websocket-шлюз на адресе из конфигурации.

Сервер останавливается по SIGINT или SIGTERM, дожидаясь завершения
активных запросов.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, closeStorage, err := openItemRepository(cfg, log)
		if err != nil {
			return err
		}
		defer closeStorage()

		mux, stopNotifications := api.New(repo, cfg, log)
		defer stopNotifications()

		server := &http.Server{
			Addr:    cfg.Server.RunAddress,
			Handler: mux,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("server started",
				"address", cfg.Server.RunAddress, "storage", cfg.Storage.Driver)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("ошибка сервера: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("ошибка остановки сервера: %w", err)
		}

		return nil
	},
}
