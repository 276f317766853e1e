package cli

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repolens/internal/errs"
	"repolens/internal/mcp"
	"repolens/internal/usecase"
)

var execServer string

// addExecFlag lets a command talk to an external stdio server instead of
// an in-process backend.
func addExecFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&execServer, "exec", "", "command line of a stdio JSON-RPC server to use as the backend")
}

// targetArg resolves the optional target argument; it defaults to --dir.
func targetArg(args []string) (usecase.Target, error) {
	if len(args) > 0 {
		return usecase.ParseTarget(args[0])
	}
	return usecase.ParseTarget(rootDir)
}

// connect returns a client for the target and a func releasing it.
func connect(ctx context.Context, args []string) (*mcp.Client, string, func(), error) {
	if execServer != "" {
		return connectExec(ctx, execServer)
	}
	t, err := targetArg(args)
	if err != nil {
		return nil, "", nil, err
	}
	srv, err := openBackend(t)
	if err != nil {
		return nil, "", nil, err
	}
	return mcp.NewClient(srv), t.String(), func() {}, nil
}

// openBackend builds the in-process backend. Missing credentials or
// settings are reported as a disabled backend.
func openBackend(t usecase.Target) (*mcp.Server, error) {
	srv, err := usecase.OpenBackend(t, cfg, Version, logger)
	if errs.Is(err, errs.Configuration) {
		logger.Warn("backend disabled", zap.String("kind", string(t.Kind)), zap.Error(err))
		return nil, fmt.Errorf("%s backend disabled: %w", t.Kind, err)
	}
	return srv, err
}

func connectExec(ctx context.Context, command string) (*mcp.Client, string, func(), error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, "", nil, fmt.Errorf("--exec is empty")
	}
	proc := exec.CommandContext(ctx, fields[0], fields[1:]...)
	proc.Stderr = os.Stderr
	stdin, err := proc.StdinPipe()
	if err != nil {
		return nil, "", nil, err
	}
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return nil, "", nil, err
	}
	if err := proc.Start(); err != nil {
		return nil, "", nil, fmt.Errorf("failed to start %s: %w", fields[0], err)
	}

	client := mcp.NewClient(mcp.NewStreamHandler(stdout, stdin))
	release := func() {
		_ = stdin.Close()
		_ = proc.Wait()
	}
	if _, err := client.Initialize(ctx); err != nil {
		release()
		return nil, "", nil, fmt.Errorf("server did not initialize: %w", err)
	}
	return client, command, release, nil
}
