package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repolens/internal/adapter/fs"
	"repolens/internal/adapter/prompt"
	"repolens/internal/domain"
)

var promptSystem bool

var promptCmd = &cobra.Command{
	Use:   "prompt <file>",
	Short: "Print the analysis prompt for a local file",
	Long: `Render the prompt analyze would send for a single local file. Files longer
than analysis.max_content_length are rendered anyway with a warning, since
analyze would skip them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, err := prompt.NewBuilder()
		if err != nil {
			return err
		}

		content, err := fs.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", args[0], err)
		}

		unit := domain.NewCodeUnit(filepath.ToSlash(args[0]), content)
		if max := cfg.Analysis.MaxContentLength; unit.Length() > max {
			logger.Warn("file exceeds max_content_length and would not be analyzed",
				zap.Int("length", unit.Length()), zap.Int("max", max))
		}
		text, err := builder.Build(unit)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if promptSystem {
			fmt.Fprintf(out, "%s\n\n---\n\n", builder.System())
		}
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().BoolVar(&promptSystem, "system", false, "also print the system prompt")
}
