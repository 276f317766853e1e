package cli

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"repolens/internal/formatter"
	"repolens/internal/usecase"
)

var (
	selectFocus    []string
	selectMaxFiles int
)

var selectCmd = &cobra.Command{
	Use:   "select [target]",
	Short: "Show which files analyze would send to the model",
	Long: `Collect files from the target and print the ranked selection without
calling the model. Useful to tune --focus and analysis.max_files.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		if selectMaxFiles > 0 {
			cfg.Analysis.MaxFiles = selectMaxFiles
		}
		cfg.Analysis.Focus = append(cfg.Analysis.Focus, selectFocus...)

		client, target, release, err := connect(ctx, args)
		if err != nil {
			return err
		}
		defer release()

		units, err := usecase.NewCollector(client, cfg.Analysis, logger).Collect(ctx)
		if err != nil {
			return fmt.Errorf("collection failed: %w", err)
		}

		sel := usecase.NewAnalyzeUseCase(nil, nil, cfg.Analysis, logger).Select(units)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d collected, %d selected\n\n", target, len(units), len(sel))
		formatter.DisplaySelection(out, sel)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().StringArrayVar(&selectFocus, "focus", nil, "file to prioritise (repeatable)")
	selectCmd.Flags().IntVar(&selectMaxFiles, "max-files", 0, "maximum number of files to select")
	addExecFlag(selectCmd)
}
