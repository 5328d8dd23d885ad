package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"StockPilot/internal/di"
	applogger "StockPilot/pkg/logger"
)

var loadCmd = &cobra.Command{
	Use:   "load URI...",
	Short: "Load written partitions into the warehouse",
	Long: `Load one or more partition objects into ClickHouse without waiting for
the partition event consumer. Reloading a partition is safe, the bars
table deduplicates on (ticker, date_time).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}
	loader, cleanup, err := di.InitializeWarehouseLoader(cfg, l)
	if err != nil {
		return err
	}
	defer cleanup()

	for _, uri := range args {
		n, err := loader.LoadURI(cmd.Context(), uri)
		if err != nil {
			return fmt.Errorf("load %s: %w", uri, err)
		}
		l.Info("partition loaded", applogger.String("uri", uri), applogger.Int("rows", n))
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", uri, n)
	}
	return nil
}
