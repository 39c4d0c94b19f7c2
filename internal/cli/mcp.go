package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"overseer.dev/internal/server"
)

func newMCPCmd(version string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve task tools to MCP clients (stdio, or HTTP with --addr)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}

			s, err := server.New(server.Options{
				Version:  version,
				Sessions: a.store,
				Load:     a.loadRegistry,
				Log:      a.log,
			})
			if err != nil {
				return err
			}

			if addr == "" {
				return s.Serve()
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return s.ServeHTTP(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address for the HTTP transport (e.g. :8080)")

	return cmd
}
