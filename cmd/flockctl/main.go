package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flockhq/flock/internal/client"
	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/flockhq/flock/internal/infrastructure/database"
	"github.com/flockhq/flock/internal/infrastructure/logging"
	"github.com/flockhq/flock/internal/repositories/sqlstore"
	"github.com/flockhq/flock/internal/schemas"
	"github.com/flockhq/flock/internal/services"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var (
	envFlag    string
	addrFlag   string
	apiKeyFlag string
)

var rootCmd = &cobra.Command{
	Use:   "flockctl",
	Short: "Operator CLI for flock",
	Long: `Operator CLI for flock.
Record commands talk to a running server over gRPC (FLOCK_ADDR, FLOCK_API_KEY).
Schema, API key and reminder commands open the database directly.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(envFlag); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&envFlag, "env", "e", "dev", "Environment to use (dev, test, prod)")
	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "Server gRPC address (overrides FLOCK_ADDR)")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "API key (overrides FLOCK_API_KEY)")

	rootCmd.AddCommand(personCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(apikeyCmd)
	rootCmd.AddCommand(remindCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func clientConfig() config.ClientConfig {
	cfg := config.LoadClient()
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}
	if apiKeyFlag != "" {
		cfg.APIKey = apiKeyFlag
	}
	return cfg
}

// dialRemote returns a typed client backed by the server's gRPC API
func dialRemote() (*client.Client, func() error, error) {
	cfg := clientConfig()
	if cfg.APIKey == "" {
		return nil, nil, fmt.Errorf("%w: FLOCK_API_KEY is not set", entities.ErrUnauthenticated)
	}

	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial %s: %w", cfg.Addr, err)
	}
	return client.New(client.NewRemoteBackend(conn, cfg.APIKey)), conn.Close, nil
}

// local is the in-process stack used by commands that open the database
type local struct {
	cfg           *config.Config
	log           zerolog.Logger
	db            *database.DB
	schemas       *services.SchemaService
	records       *services.RecordService
	keys          *services.APIKeyService
	authenticator *authorization.Authenticator
}

func openLocal(ctx context.Context) (*local, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := logging.New(cfg.Log, os.Stderr)
	if err != nil {
		return nil, err
	}

	db, err := database.Open(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dialect := sqlstore.DialectFor(db.Driver)
	celEngine, err := authorization.NewCELEngine()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create CEL engine: %w", err)
	}

	schemaService := services.NewSchemaService(sqlstore.NewSchemaRepository(db.DB, dialect), celEngine)
	if _, err := schemaService.LoadLatest(ctx); err != nil {
		if !errors.Is(err, entities.ErrSchemaNotFound) {
			db.Close()
			return nil, err
		}
		if _, err := schemaService.WriteSchema(ctx, schemas.Church()); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to provision schema: %w", err)
		}
	}

	keyRepo := sqlstore.NewAPIKeyRepository(db.DB, dialect)
	return &local{
		cfg:           cfg,
		log:           logger,
		db:            db,
		schemas:       schemaService,
		records:       services.NewRecordService(sqlstore.NewRecordRepository(db.DB, dialect), schemaService, authorization.NewChecker(celEngine)),
		keys:          services.NewAPIKeyService(keyRepo, schemaService, nil),
		authenticator: authorization.NewAuthenticator(keyRepo),
	}, nil
}

func (l *local) Close() error {
	return l.db.Close()
}

// authenticate checks the configured API key and returns a context carrying
// its principal
func (l *local) authenticate(ctx context.Context) (context.Context, error) {
	principal, err := l.authenticator.Authenticate(ctx, clientConfig().APIKey)
	if err != nil {
		return nil, err
	}
	return authorization.WithPrincipal(ctx, principal), nil
}
