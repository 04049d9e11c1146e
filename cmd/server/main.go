package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"

	"flow-orchestrator/backend/internal/agents"
	"flow-orchestrator/backend/internal/api"
	"flow-orchestrator/backend/internal/auth"
	"flow-orchestrator/backend/internal/config"
	"flow-orchestrator/backend/internal/connectors"
	"flow-orchestrator/backend/internal/engine"
	"flow-orchestrator/backend/internal/logging"
	"flow-orchestrator/backend/internal/mcp"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/internal/routing"
	"flow-orchestrator/backend/internal/services"
	"flow-orchestrator/backend/internal/tls"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run the flow orchestration service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), envFile)
		},
	}
	cmd.Flags().StringVar(&envFile, "env", "", "Path to .env file")
	bindFlags(cmd.Flags())
	return cmd
}

// bindFlags exposes the most used settings as flags; each overrides the
// config file and environment through viper.
func bindFlags(fs *pflag.FlagSet) {
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("db-driver", "memory", "Persistence driver: memory or postgres")
	fs.String("agent-provider", "catalog", "Agent responder: catalog, sidecar or openai")
	fs.String("log-level", "info", "Log level: debug, info, warn or error")
	fs.Bool("tls", false, "Serve HTTPS")

	for key, flag := range map[string]string{
		"server.port":    "port",
		"db.driver":      "db-driver",
		"agent.provider": "agent-provider",
		"log.level":      "log-level",
		"tls.enable":     "tls",
	} {
		_ = viper.BindPFlag(key, fs.Lookup(flag))
	}
}

func run(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		logging.NewLogger().Error("Failed to load configuration", "error", err)
		return err
	}
	logger := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	logger.Info("Configuration loaded",
		"environment", cfg.Environment,
		"db_driver", cfg.DB.Driver,
		"agent_provider", cfg.Agent.Provider,
		"redis", cfg.Redis.Enable,
		"config_file", viper.ConfigFileUsed(),
	)
	if cfg.IsDev() && cfg.Scope.DefaultUser != "" {
		logger.Warn("Requests without X-User-ID run as the default user", "user_id", cfg.Scope.DefaultUser)
	}

	logger.Info("Starting Flow Orchestrator")

	// Initialize repository layer
	repo, closeRepo, err := initRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize repository", "error", err)
		return err
	}
	defer closeRepo()

	// Connector KPIs, optionally cached in Redis
	var kpis connectors.Provider = connectors.NewCatalog()
	if cfg.Redis.Enable {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unavailable, KPI cache will fall through", "addr", cfg.Redis.Addr, "error", err)
		}
		kpis = connectors.NewCachedProvider(kpis, rdb, cfg.Redis.TTL)
		logger.Info("KPI cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	// Initialize service layer
	catalog := agents.NewCatalog()
	eng := engine.New(kpis, newResponder(cfg, catalog),
		engine.WithCosts(cfg.Engine.Costs),
		engine.WithLogger(logger),
		engine.WithMeter(otel.Meter("flow-orchestrator")),
	)
	templates, err := services.BuiltinTemplates()
	if err != nil {
		logger.Error("Failed to load flow templates", "error", err)
		return err
	}
	flows := services.NewFlowService(repo, templates)
	orchestrator := services.NewOrchestratorService(eng, repo, repo, logger)
	clients := services.NewClientService(repo)
	router := routing.NewRouter(catalog, kpis, logger)
	resolver := auth.New(cfg, repo, logger)

	logger.Info("Service layer initialized", "templates", templates.Len(), "agents", len(router.Agents()))

	// Create Echo server
	e := api.NewEcho(logger)

	// Mount REST API handlers
	apiGroup := e.Group("/api/v1")
	api.RegisterHandlers(apiGroup, api.NewServer(repo, flows, orchestrator, clients, router, logger), resolver)

	logger.Info("REST API handlers mounted")

	// Mount MCP protocol handlers
	mcpServer := mcp.NewServer(router, flows, orchestrator, resolver)
	mcpHandlers := http.NewServeMux()
	mcp.MountHTTPHandlers(mcpHandlers, mcpServer.GetMCPServer())
	e.Any("/mcp", echo.WrapHandler(mcpHandlers))
	e.Any("/mcp/*", echo.WrapHandler(mcpHandlers))

	logger.Info("MCP protocol handlers mounted")

	// expose OpenAPI spec and Swagger UI
	e.GET("/openapi.yaml", echo.WrapHandler(api.SpecHandler("api/openapi.yaml", "")))
	e.GET("/docs", echo.WrapHandler(api.SwaggerHandler("/openapi.yaml")))

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	if cfg.TLS.Enable {
		created, err := tls.EnsureCertificate(cfg.TLS.CertFile, cfg.TLS.KeyFile, cfg.TLS.Hostnames)
		if err != nil {
			logger.Error("Failed to prepare TLS certificate", "error", err)
			return err
		}
		if created {
			logger.Warn("Generated self-signed certificate", "cert_file", cfg.TLS.CertFile, "hostnames", cfg.TLS.Hostnames)
		}
	}

	// Graceful shutdown handling
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", server.Addr, "tls", cfg.TLS.Enable)
		if cfg.TLS.Enable {
			serverErrors <- server.ListenAndServeTLS(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		} else {
			serverErrors <- server.ListenAndServe()
		}
	}()

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		logger.Info("Shutdown signal received", "signal", sig.String())

		// Create shutdown context with timeout
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			if err := server.Close(); err != nil {
				logger.Error("Server close error", "error", err)
			}
		}

		logger.Info("Server stopped gracefully")
	}
	return nil
}

// initRepository opens the configured store. The returned func releases
// it.
func initRepository(ctx context.Context, cfg *config.Config, logger *logging.Logger) (repository.Repository, func(), error) {
	if cfg.DB.Driver != "postgres" {
		logger.Info("Using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), func() {}, nil
	}

	dbPool, err := initDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewPostgresStore(dbPool)
	if err := store.EnsureSchema(ctx); err != nil {
		dbPool.Close()
		return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("Database connected", "host", cfg.DB.Host, "name", cfg.DB.Name)
	return store, dbPool.Close, nil
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pgxpool.Pool, error) {
	logger.Debug("Initializing database connection")

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

func newResponder(cfg *config.Config, catalog *agents.Catalog) agents.Responder {
	switch cfg.Agent.Provider {
	case "sidecar":
		return agents.NewSidecarResponder(cfg.Agent.SidecarURL, catalog, cfg.Agent.Timeout)
	case "openai":
		return agents.NewOpenAIResponder(catalog, agents.OpenAIOptions{
			APIKey:     cfg.Agent.OpenAI.APIKey,
			Model:      cfg.Agent.OpenAI.Model,
			BaseURL:    cfg.Agent.OpenAI.BaseURL,
			MaxRetries: 2,
		})
	}
	return agents.NewCatalogResponder(catalog)
}
