package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"repolens/internal/errs"
)

var callCmd = &cobra.Command{
	Use:   "call [target] <tool> [json-args]",
	Short: "Invoke one backend tool and print its result",
	Long: `Invoke a single tool on the target's backend. Arguments are passed as a
JSON object.

Examples:
  repolens call . list_contents '{"path": "internal"}'
  repolens call acme/widgets get_commits '{"per_page": 5}'`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		targetArgs, tool, rawArgs, err := splitCallArgs(args)
		if err != nil {
			return err
		}

		var toolArgs map[string]any
		if rawArgs != "" {
			if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
				return errs.Validationf("call", "arguments must be a JSON object: %v", err)
			}
		}

		client, _, release, err := connect(ctx, targetArgs)
		if err != nil {
			return err
		}
		defer release()

		var result json.RawMessage
		if err := client.CallTool(ctx, tool, toolArgs, &result); err != nil {
			return err
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// splitCallArgs separates the optional target from the tool name and its
// JSON arguments. With two args the second is taken as JSON when it starts
// with '{'.
func splitCallArgs(args []string) (target []string, tool, raw string, err error) {
	switch len(args) {
	case 1:
		return nil, args[0], "", nil
	case 2:
		if len(args[1]) > 0 && args[1][0] == '{' {
			return nil, args[0], args[1], nil
		}
		return args[:1], args[1], "", nil
	case 3:
		return args[:1], args[1], args[2], nil
	}
	return nil, "", "", errs.Validationf("call", "expected [target] <tool> [json-args]")
}

func init() {
	rootCmd.AddCommand(callCmd)
	addExecFlag(callCmd)
}
