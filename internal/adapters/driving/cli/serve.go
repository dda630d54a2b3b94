package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driving/api"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/core/services"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the question router over HTTP.

Endpoints:
  GET  /             service name, version and status
  GET  /health       health check
  POST /chat         {"message": "...", "collections": [...], "max_results": 5}
  GET  /collections  processed collections

Questions are answered without interaction: reshaped questions are accepted
and the requested collections (or the suggested ones) are searched.
When server.jwt_secret is set, /chat and /collections require a bearer token.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from configuration, :8000)")
	rootCmd.AddCommand(serveCmd)
}

// autoDecider answers router decisions for non-interactive clients.
func autoDecider(requested []string) driving.Decider {
	return services.AutoDecider{Collections: requested}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := requireCatalog(); err != nil {
		return err
	}
	if err := requireRouter(ctx); err != nil {
		return err
	}

	handler, err := api.NewHandler(&api.Ports{
		Router:  routerService,
		Catalog: catalogService,
		Decider: autoDecider,
	}, api.Options{
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.Server.JWTSecret,
	})
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if addr == "" {
		addr = ":8000"
	}
	printf(cmd, "HTTP API listening on %s\n", addr)
	return api.NewServer(addr, handler).Run(ctx)
}
