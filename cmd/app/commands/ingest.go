package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"StockPilot/internal/di"
	"StockPilot/internal/domain/models"
	"StockPilot/pkg/util"
)

var (
	ingestSymbols  []string
	ingestPeriod   string
	ingestInterval string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion and print the written partition URIs",
	Long: `Fetch bars for the given symbols (the configured universe by default),
normalize and enrich them, and write one parquet object per instrument.

Example:
  stockpilot ingest --symbols AAPL,MSFT --period 5d --interval 15m`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestSymbols, "symbols", nil, "comma separated instrument ids")
	ingestCmd.Flags().StringVar(&ingestPeriod, "period", "", "lookback period, e.g. 1d, 5d, 1mo")
	ingestCmd.Flags().StringVar(&ingestInterval, "interval", "", "bar interval, e.g. 1m, 15m, 1d")
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner, cleanup, err := di.InitializeRunner(cfg, l)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := runner.Run(ctx, models.IngestionRequest{
		ID:          uuid.NewString(),
		Instruments: util.SplitLists(ingestSymbols),
		Period:      ingestPeriod,
		Interval:    ingestInterval,
	})
	if res != nil {
		if perr := printJSON(cmd.OutOrStdout(), res); perr != nil {
			return perr
		}
	}
	return err
}
