package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/islandsim/app"
)

var serveOpts struct {
	addr  string
	token string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored results, the last summary and Prometheus metrics",
	RunE:  serve,
}

func init() {
	serveCmd.Flags().StringVar(&serveOpts.addr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&serveOpts.token, "token", os.Getenv("ISLANDSIM_API_TOKEN"), "bearer token required by the API")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()
	return svc.Serve(ctx, serveOpts.addr, serveOpts.token)
}
