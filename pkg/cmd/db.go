package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/internal/storage"
	"github.com/yeisme/dropvault/pkg/internal/storage/db"
)

var (
	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "metadata database commands",
	}

	dbListCmd = &cobra.Command{
		Use:   "ls",
		Short: "list supported database types, the configured one marked with *",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			current := configs.GetConfig().DB.Type

			fmt.Fprintln(cmd.OutOrStdout(), "Registered database types:")
			for _, t := range db.GetRegisteredDBTypes() {
				fmt.Fprintf(cmd.OutOrStdout(), " %s %s\n", marker(t == current), t)
			}
		},
	}

	dbMigrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "create or update the users and files tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// storage.Open 会执行迁移
			return withStorage(cmd.Context(), func(m *storage.Manager) error {
				if err := m.DB.Ping(cmd.Context()); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", configs.GetConfig().DB.Type)

				return nil
			})
		},
	}
)

func marker(selected bool) string {
	if selected {
		return "*"
	}

	return "-"
}

// registerDBCommands 注册数据库相关命令.
func registerDBCommands() {
	rootCmd.AddCommand(dbCmd)

	dbCmd.AddCommand(dbListCmd, dbMigrateCmd)
}
