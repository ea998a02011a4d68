package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yeisme/dropvault/pkg/app"
	"github.com/yeisme/dropvault/pkg/configs"
	"github.com/yeisme/dropvault/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the HTTP server (default)",
	RunE:  runServe,
}

// runServe 启动服务，收到 SIGINT/SIGTERM 后优雅退出.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, configs.GetConfig())
	if err != nil {
		return err
	}

	defer func() {
		if err := a.Close(); err != nil {
			log.Logger().Error().Err(err).Msg("failed to close storage")
		}
	}()

	return a.Run(ctx)
}

func registerServeCommands() {
	rootCmd.AddCommand(serveCmd)
}
