// cmd/server/cmd/cleanup.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"termsync/internal/domain/resolver"
	"termsync/internal/domain/syncitem"
)

var (
	cleanupOlderThanDays int
	cleanupUserID        string
	cleanupSyncType      string
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Удалить устаревшие tombstone-записи",
	Long: `Физически удаляет записи, помеченные удалёнными раньше порога.

Область очистки можно сузить до одного пользователя и одного типа данных.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, closeStorage, err := openItemRepository(cfg, log)
		if err != nil {
			return err
		}
		defer closeStorage()

		service := syncitem.NewService(repo, resolver.NewService(log), log, &syncitem.ServiceConfig{
			CleanupAfterDays: cfg.Sync.CleanupAfterDays,
		})

		removed, err := service.Cleanup(cmd.Context(), cleanupOlderThanDays, cleanupUserID, cleanupSyncType)
		if err != nil {
			return fmt.Errorf("ошибка очистки: %w", err)
		}

		fmt.Printf("Удалено записей: %d\n", removed)

		return nil
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupOlderThanDays, "older-than-days", 0, "порог в днях, 0 — значение из конфигурации")
	cleanupCmd.Flags().StringVar(&cleanupUserID, "user-id", "", "ограничить очистку одним пользователем")
	cleanupCmd.Flags().StringVar(&cleanupSyncType, "sync-type", "", "ограничить очистку одним типом данных")
}
