// cmd/server/cmd/root.go
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"termsync/internal/app/server/config"
	"termsync/internal/domain/syncitem"
	"termsync/internal/infrastructure/storage/postgres"
	"termsync/internal/infrastructure/storage/sqlite"
	"termsync/internal/utils/logger"
)

var (
	cfg *config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "termsync-server",
	Short: "Termsync — сервер синхронизации терминальных данных",
	Long: `Termsync-сервер синхронизирует историю команд, SSH-профили и
настройки терминала между устройствами пользователя.

Конфликты параллельных правок обнаруживаются и разрешаются автоматически,
подключённые устройства получают уведомления через websocket.`,
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(1)
	}
}

func setup(_ *cobra.Command, _ []string) error {
	cfg = config.MustLoad()
	log = logger.New(cfg.Env)

	return nil
}

// openItemRepository подключает хранилище по настроенному драйверу.
func openItemRepository(cfg *config.Config, log *slog.Logger) (syncitem.Repository, func(), error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		storage, err := postgres.New(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка подключения к postgres: %w", err)
		}
		return postgres.NewItemRepository(storage.Pool(), log), func() { _ = storage.Close() }, nil

	case config.StorageSQLite:
		storage, err := sqlite.New(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("ошибка открытия sqlite: %w", err)
		}
		return sqlite.NewItemRepository(storage.DB(), log), func() { _ = storage.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("неизвестный драйвер хранилища: %s", cfg.Storage.Driver)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(cleanupCmd)
}
