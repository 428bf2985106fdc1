// Command threatgraph-server serves the entity-graph and threat-intel
// lookup API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dd0wney/cluso-threatgraph/pkg/api"
	"github.com/dd0wney/cluso-threatgraph/pkg/config"
	"github.com/dd0wney/cluso-threatgraph/pkg/entitygraph"
	"github.com/dd0wney/cluso-threatgraph/pkg/logging"
	"github.com/dd0wney/cluso-threatgraph/pkg/metrics"
	"github.com/dd0wney/cluso-threatgraph/pkg/ti"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	port := flag.Int("port", 0, "listen port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "threatgraph-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, portOverride int) error {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if portOverride != 0 {
		cfg.Server.Port = portOverride
	}

	logger := logging.NewJSONLogger(os.Stdout, logging.ParseLevel(cfg.Logging.Level))
	reg := metrics.NewRegistry()

	providers, err := buildProviders(cfg, logger, reg)
	if err != nil {
		return err
	}

	builder, err := entitygraph.New(nil,
		entitygraph.WithLogger(logger),
		entitygraph.WithMetrics(reg))
	if err != nil {
		return err
	}

	srv, err := api.NewServer(cfg, builder, providers, logger, reg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", logging.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// buildProviders wires one provider per configured REST TI service
func buildProviders(cfg *config.Config, logger logging.Logger, reg *metrics.Registry) ([]*ti.Provider, error) {
	providers := make([]*ti.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		requests := make([]ti.RequestDef, 0, len(pc.Requests))
		for _, rc := range pc.Requests {
			requests = append(requests, ti.RequestDef{
				QueryDef: ti.QueryDef{
					IocType:     ti.IoCType(rc.IocType),
					Subtype:     rc.Subtype,
					Description: rc.Description,
				},
				Path:   rc.Path,
				Method: rc.Method,
				Params: rc.Params,
			})
		}

		backend, err := ti.NewHTTPBackend(ti.HTTPBackendConfig{
			Name:       pc.Name,
			BaseURL:    pc.BaseURL,
			APIKey:     pc.APIKey,
			AuthHeader: pc.AuthHeader,
			AuthScheme: pc.AuthScheme,
			Timeout:    pc.Timeout,
			Requests:   requests,
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
		}

		providers = append(providers, ti.NewProvider(backend,
			ti.WithCache(cfg.Lookup.CacheSize),
			ti.WithRateLimit(cfg.Lookup.RateLimit, cfg.Lookup.Burst),
			ti.WithLogger(logger),
			ti.WithMetrics(reg)))
	}
	return providers, nil
}
