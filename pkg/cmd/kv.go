package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeisme/dropvault/pkg/configs"
	kv "github.com/yeisme/dropvault/pkg/internal/storage/kv"
)

var (
	kvCmd = &cobra.Command{
		Use:     "kv",
		Short:   "identity cache store commands",
		Aliases: []string{"keyvalue"},
	}

	kvListCmd = &cobra.Command{
		Use:     "list",
		Short:   "list supported kv types, the configured one marked with *",
		Aliases: []string{"ls", "l"},
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := configs.GetConfig()

			fmt.Fprintln(cmd.OutOrStdout(), "Registered kv types:")
			for _, t := range kv.GetRegisteredKVTypes() {
				fmt.Fprintf(cmd.OutOrStdout(), " %s %s\n", marker(string(t) == cfg.KV.Type), t)
			}

			if cfg.Auth.CacheTTL <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "identity cache: disabled")
				return
			}

			fmt.Fprintf(cmd.OutOrStdout(), "identity cache: ttl=%s\n", cfg.Auth.CacheTTL)
		},
	}
)

// registerKVCommands 注册 KV 相关命令.
func registerKVCommands() {
	rootCmd.AddCommand(kvCmd)
	kvCmd.AddCommand(kvListCmd)
}
