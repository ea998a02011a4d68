// Package cmd contains the command line applications for the project.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/yeisme/dropvault/pkg/configs"
)

var (
	// configPath 配置文件或配置目录.
	configPath string
	// debug 打印 viper 内部状态.
	debug bool

	rootCmd = &cobra.Command{
		Use:           "dropvault",
		Short:         "A token-gated ephemeral file sharing service",
		Version:       configs.AppVersion,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return configs.InitConfig(configPath, cmd.Flags())
		},
		RunE: runServe,
	}
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", ".", "config file or directory")
	pf.String("db", "", "sqlite database file")
	pf.String("bind", "", "listen address, host:port")
	pf.String("store", "", "storage root directory")
	pf.Int64("max-file-size", 0, "max upload size in MB")

	debugCmd.Flags().BoolVar(&debug, "viper", false, "also print viper internals")

	registerServeCommands()
	registerConfigsCommands()
	registerDBCommands()
	registerKVCommands()
	registerUserCommands()
	registerFileCommands()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
