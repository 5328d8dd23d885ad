package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"StockPilot/internal/di"
	applogger "StockPilot/pkg/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API, ingestion scheduler, job workers and warehouse loader",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := di.InitializeApp(cfg, l)
	if err != nil {
		l.Error("app initialization failed", applogger.Error(err))
		return err
	}
	defer cleanup()

	l.Info("stockpilot starting",
		applogger.Int("port", cfg.Server.Port),
		applogger.String("storage", cfg.Storage.Backend),
		applogger.Strings("kafka_brokers", cfg.Kafka.Brokers),
		applogger.Bool("redis", cfg.Redis.Enabled),
	)
	if err := app.Run(ctx); err != nil {
		l.Error("app stopped with error", applogger.Error(err))
		return err
	}
	l.Info("stockpilot stopped")
	return nil
}
