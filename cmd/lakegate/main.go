package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/brporter/lakegate/internal/auth"
	"github.com/brporter/lakegate/internal/cli"
	"github.com/brporter/lakegate/internal/config"
	"github.com/brporter/lakegate/internal/gateway"
	"github.com/brporter/lakegate/internal/metrics"
	"github.com/brporter/lakegate/internal/warehouse"
)

func main() {
	v := config.NewViper()
	var envFile string

	rootCmd := &cobra.Command{
		Use:   "lakegate",
		Short: "Identity-aware gateway for a shared data warehouse",
		Long: "lakegate sits behind the platform proxy, works out who is calling from the\n" +
			"forwarded headers and bearer tokens, and runs warehouse queries as that caller.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.LoadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, newLogger(os.Stderr, cfg))
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&envFile, "env-file", ".env", "Read settings from this file before the environment")
	flags.String("addr", ":8080", "Listen address")
	flags.String("host", "", "Workspace host (DATABRICKS_HOST)")
	flags.String("warehouse-id", "", "SQL warehouse id (DATABRICKS_WAREHOUSE_ID)")
	flags.String("log-level", "info", "Log level: debug, info, warn, error")
	flags.String("log-format", "text", "Log format: text or json")
	flags.Bool("oidc-discovery", false, "Discover the token endpoint from {host}/oidc")
	for key, name := range map[string]string{
		config.KeyAddr:          "addr",
		config.KeyHost:          "host",
		config.KeyWarehouseID:   "warehouse-id",
		config.KeyLogLevel:      "log-level",
		config.KeyLogFormat:     "log-format",
		config.KeyOIDCDiscovery: "oidc-discovery",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewProm("lakegate", reg)

	client := &http.Client{Timeout: cfg.VerifyTimeout}
	resolver := auth.NewResolver(gateway.InstrumentVerifier(auth.NewVerifier(cfg, client, logger), m))
	groups := auth.NewGroupLookup(
		resolver,
		auth.NewServiceTokenSource(cfg, client, logger),
		auth.NewDirectory(cfg, client, logger),
		cfg.DirectoryScopes,
		logger,
	)
	executor := warehouse.NewExecutor(cfg, warehouse.NewDatabricksOpener(cfg), m, logger)

	srv := gateway.NewServer(cfg, gateway.Services{
		Resolver: resolver,
		Groups:   groups,
		Queries:  executor,
		Metrics:  m,
		Gatherer: reg,
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.VerifyTimeout + cfg.QueryTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gateway starting",
			"addr", cfg.Addr,
			"host", cfg.Host,
			"warehouse_configured", cfg.WarehouseID != "",
			"service_identity_configured", cfg.ServiceConfigured(),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", "err", err)
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	default:
		return nil
	}
}
