package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repolens/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve [target]",
	Short: "Serve a repository backend over stdio JSON-RPC",
	Long: `Expose the target's backend as a line-delimited JSON-RPC server on stdin
and stdout. Logs go to stderr.

Another repolens process can use it with --exec:
  repolens analyze --exec "repolens serve /path/to/repo"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		t, err := targetArg(args)
		if err != nil {
			return err
		}
		srv, err := openBackend(t)
		if err != nil {
			return err
		}

		logger.Info("serving", zap.String("target", t.String()), zap.String("server", srv.Name()))
		return mcp.Serve(ctx, os.Stdin, os.Stdout, srv, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
