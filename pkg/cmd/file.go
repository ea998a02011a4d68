package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/dropvault/pkg/internal/storage"
)

var (
	fileCmd = &cobra.Command{
		Use:   "file",
		Short: "manage stored files",
	}

	fileEnableCmd = &cobra.Command{
		Use:   "enable <id>",
		Short: "make a stored file downloadable again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFileAvailable(cmd, args[0], true)
		},
	}

	fileDisableCmd = &cobra.Command{
		Use:   "disable <id>",
		Short: "stop serving a stored file, the blob is kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setFileAvailable(cmd, args[0], false)
		},
	}
)

func setFileAvailable(cmd *cobra.Command, id string, available bool) error {
	ctx := cmd.Context()

	return withStorage(ctx, func(m *storage.Manager) error {
		if err := m.Files.SetAvailable(ctx, id, available); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s available=%t\n", id, available)

		return nil
	})
}

func registerFileCommands() {
	fileCmd.AddCommand(fileEnableCmd, fileDisableCmd)
	rootCmd.AddCommand(fileCmd)
}
