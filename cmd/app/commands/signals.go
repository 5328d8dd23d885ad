package commands

import (
	"github.com/spf13/cobra"

	"StockPilot/internal/di"
)

var signalsBars int

var signalsCmd = &cobra.Command{
	Use:   "signals SYMBOL",
	Short: "Evaluate trading signals for one instrument from warehouse data",
	Args:  cobra.ExactArgs(1),
	RunE:  runSignals,
}

func init() {
	rootCmd.AddCommand(signalsCmd)
	signalsCmd.Flags().IntVarP(&signalsBars, "bars", "n", 0, "bars to evaluate (config signals.history_bars by default)")
}

func runSignals(cmd *cobra.Command, args []string) error {
	cfg, l, err := bootstrap()
	if err != nil {
		return err
	}
	q, cleanup, err := di.InitializeQueryService(cfg, l)
	if err != nil {
		return err
	}
	defer cleanup()

	n := signalsBars
	if n <= 0 {
		n = cfg.Signals.HistoryBars
	}
	res, err := q.Signals(cmd.Context(), args[0], n)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
