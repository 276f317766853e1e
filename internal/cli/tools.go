package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var toolsSchema bool

var toolsCmd = &cobra.Command{
	Use:   "tools [target]",
	Short: "List the tools a backend exposes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		client, target, release, err := connect(ctx, args)
		if err != nil {
			return err
		}
		defer release()

		tools, err := client.ListTools(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s exposes %d tools:\n\n", target, len(tools))
		for _, t := range tools {
			fmt.Fprintf(out, "  %-22s %s\n", t.Name, t.Description)
			if toolsSchema {
				data, err := json.MarshalIndent(t.InputSchema, "      ", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "      %s\n", data)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsSchema, "schema", false, "print each tool's input schema")
	addExecFlag(toolsCmd)
}
