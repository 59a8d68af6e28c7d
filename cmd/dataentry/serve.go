package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/httpapi"
	"github.com/SDEVARAJKDBLACk/ai-data-entry/internal/mcp"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	var withMCP bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the HTTP API: POST /analyze, GET /history, GET /fields,
POST /fields/custom, GET /export and GET /health.

With --mcp the MCP server also runs on stdin/stdout, sharing the same
history and field memory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			httpCfg := httpapi.DefaultConfig()
			httpCfg.Version = version
			router := httpapi.NewRouter(a.svc, a.exp, httpCfg, a.logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return httpapi.Serve(gctx, a.cfg.HTTPAddr.Value, router, httpCfg, a.logger)
			})
			if withMCP {
				g.Go(func() error {
					srv := mcp.NewServer(mcp.ServerConfig{Service: a.svc, Version: version})
					err := mcp.ServeStdio(gctx, srv, os.Stdin, os.Stdout)
					if err == nil {
						// stdin closed: stop the HTTP server too.
						return context.Canceled
					}
					return err
				})
			}
			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default :8080)")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "also serve MCP over stdio")
	return cmd
}

func newMCPCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the MCP tools over stdio",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing
dataentry_analyze, dataentry_history, dataentry_fields, dataentry_register
and dataentry_stats, plus the dataentry://history/recent and
dataentry://fields resources.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := mcp.NewServer(mcp.ServerConfig{Service: a.svc, Version: version})
			return mcp.ServeStdio(ctx, srv, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}
