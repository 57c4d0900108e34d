package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lyzr/chainquery/cmd/chainquery/container"
	"github.com/lyzr/chainquery/cmd/chainquery/routes"
	"github.com/lyzr/chainquery/cmd/chainquery/service"
	"github.com/lyzr/chainquery/common/bootstrap"
	"github.com/lyzr/chainquery/common/config"
	"github.com/lyzr/chainquery/common/logger"
	"github.com/lyzr/chainquery/common/server"
	"github.com/spf13/cobra"
)

const serviceName = "chainquery"

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chainquery",
		Short: "Chain directory, top nodes and node search across referral chains",
		Long: `chainquery serves read queries that federate every per-chain node
collection: the chain directory with invested capital, the media record,
the largest nodes across all chains and a cross-chain node search.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Optional .env for local runs
			_ = godotenv.Load()
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChainsCmd(),
		newMediaCmd(),
		newTopNodesCmd(),
		newSearchCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "chainquery %s (%s) built %s\n", version, commit, buildTime)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Bootstrap common components (store, logger, redis, cache, telemetry)
			components, err := bootstrap.Setup(ctx, serviceName)
			if err != nil {
				return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
			}
			defer components.Shutdown(context.Background())

			// Initialize service container (all services created once)
			c := container.NewContainer(components)

			e := routes.NewRouter(c)

			cfg := components.Config
			srv := server.New(serviceName, cfg.Service.Port, e, cfg.Query.Timeout*2, components.Logger)
			return srv.Run(ctx)
		},
	}
}

func newChainsCmd() *cobra.Command {
	var page, limit string

	cmd := &cobra.Command{
		Use:   "chains",
		Short: "List chains with investment totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(ctx context.Context, svc *service.QueryService) *service.Result {
				return svc.ListChains(ctx, svc.Validator().ParsePage(page, limit))
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "1", "Page number (1-based)")
	cmd.Flags().StringVar(&limit, "limit", "", "Page size (defaults to QUERY_DEFAULT_PAGE_SIZE)")
	return cmd
}

func newMediaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "media",
		Short: "Print the media record",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(ctx context.Context, svc *service.QueryService) *service.Result {
				return svc.GetMedia(ctx)
			})
		},
	}
}

func newTopNodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "top-nodes",
		Short: "List the largest nodes across all chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(ctx context.Context, svc *service.QueryService) *service.Result {
				return svc.TopNodes(ctx)
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	var page, limit string

	cmd := &cobra.Command{
		Use:   "search <term>",
		Short: "Search all chains by user name or node id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, func(ctx context.Context, svc *service.QueryService) *service.Result {
				return svc.SearchNodes(ctx, args[0], svc.Validator().ParsePage(page, limit))
			})
		},
	}

	cmd.Flags().StringVar(&page, "page", "1", "Page number (1-based)")
	cmd.Flags().StringVar(&limit, "limit", "", "Page size (defaults to QUERY_DEFAULT_PAGE_SIZE)")
	return cmd
}

// runQuery bootstraps without telemetry, runs one executor and prints its
// response document to stdout. Logs go to stderr.
func runQuery(cmd *cobra.Command, run func(context.Context, *service.QueryService) *service.Result) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(serviceName)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Service.LogLevel, cfg.Service.LogFormat)

	components, err := bootstrap.Setup(ctx, serviceName,
		bootstrap.WithCustomConfig(cfg),
		bootstrap.WithCustomLogger(log),
		bootstrap.WithoutTelemetry(),
	)
	if err != nil {
		return fmt.Errorf("failed to bootstrap %s: %w", serviceName, err)
	}
	defer components.Shutdown(context.Background())

	res := run(ctx, container.NewContainer(components).QueryService)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res.Body()); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if res.Status != service.StatusOK {
		return fmt.Errorf("%s: %s", res.Status, res.Message)
	}
	return nil
}
