package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"flow-orchestrator/backend/internal/config"
	"flow-orchestrator/backend/internal/logging"
	"flow-orchestrator/backend/internal/repository"
	"flow-orchestrator/backend/internal/services"
	"flow-orchestrator/backend/pkg/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

type seedOptions struct {
	envFile    string
	userID     string
	clientID   string
	clientName string
	file       string
}

func main() {
	if err := newSeedCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:          "seed",
		Short:        "Seed a client and its starter flows into Postgres",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return seed(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.envFile, "env", "", "Path to .env file")
	cmd.Flags().StringVar(&opts.userID, "user", "demo-user", "Owner the seeded data belongs to")
	cmd.Flags().StringVar(&opts.clientID, "client-id", "demo-client", "Client id to create or reuse")
	cmd.Flags().StringVar(&opts.clientName, "client-name", "Demo Client", "Display name for a new client")
	cmd.Flags().StringVar(&opts.file, "file", "", "YAML file of flows to seed instead of the built-in templates")
	return cmd
}

func seed(ctx context.Context, opts seedOptions) error {
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig(opts.envFile)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		return err
	}

	// Connect to DB
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to DB", "error", err)
		return err
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		return err
	}

	catalog, err := loadCatalog(opts.file)
	if err != nil {
		logger.Error("Failed to load flows", "file", opts.file, "error", err)
		return err
	}

	// 1. Ensure Client Exists
	client, err := store.GetClient(ctx, opts.userID, opts.clientID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		logger.Info("Creating client", "client_id", opts.clientID, "user_id", opts.userID)
		client, err = services.NewClientService(store).Register(ctx, opts.userID, opts.clientID, opts.clientName)
		if err != nil {
			logger.Error("Failed to create client", "error", err)
			return err
		}
	case err != nil:
		logger.Error("Failed to look up client", "error", err)
		return err
	default:
		logger.Info("Found existing client", "client_id", client.ID)
	}
	scope := models.Scope{UserID: opts.userID, ClientID: client.ID}

	// 2. Check for existing flows to prevent duplicates
	existing, err := store.ListFlows(ctx, scope, repository.FlowFilter{})
	if err != nil {
		logger.Error("Failed to list existing flows", "error", err)
		return err
	}
	existingMap := make(map[string]bool, len(existing))
	for _, f := range existing {
		existingMap[f.Name] = true
	}

	// 3. Create Seed Flows
	flows := services.NewFlowService(store, nil)
	seeded := 0
	for _, tpl := range catalog.List("") {
		if existingMap[tpl.Name] {
			logger.Info("Skipping existing flow", "name", tpl.Name)
			continue
		}
		f, err := flows.Create(ctx, scope, services.FlowInput{
			Name:        tpl.Name,
			Category:    tpl.Category,
			Description: tpl.Description,
			Graph:       tpl.Graph,
		})
		if err != nil {
			logger.Error("Failed to create flow", "name", tpl.Name, "error", err)
			continue
		}
		seeded++
		logger.Info("Seeded flow", "name", f.Name, "id", f.ID)
	}
	logger.Info("Seeding complete!", "seeded", seeded, "total", catalog.Len())
	return nil
}

func loadCatalog(path string) (*services.TemplateCatalog, error) {
	if path == "" {
		return services.BuiltinTemplates()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return services.LoadTemplates(data)
}
