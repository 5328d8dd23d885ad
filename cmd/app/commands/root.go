package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"StockPilot/pkg/config"
	applogger "StockPilot/pkg/logger"
)

var (
	configFile string
	env        string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "stockpilot",
	Short: "Market data ingestion, warehouse loading and signal API",
	Long: `StockPilot fetches OHLCV bars, writes them as parquet partitions,
loads them into ClickHouse and serves snapshots and trading signals.

Examples:
  stockpilot serve --config config/config.yaml
  stockpilot ingest --symbols AAPL,MSFT --period 5d --interval 15m
  stockpilot signals NVDA
  stockpilot load gs://bucket/raw/2025-06-02/AAPL_20250602T211500Z.parquet`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment name, also selects .env.<name>")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (*config.Config, *applogger.Logger, error) {
	envFiles := []string{".env"}
	if env != "" {
		envFiles = append([]string{".env." + env}, envFiles...)
	}
	cfg, err := config.LoadWithEnv(configFile, envFiles...)
	if err != nil {
		return nil, nil, err
	}
	if env != "" {
		cfg.Environment = env
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	l, err := applogger.New(&cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	l = l.With(applogger.String("env", cfg.Environment))
	return cfg, l, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
