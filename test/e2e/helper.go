package e2e

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/client"
	"github.com/flockhq/flock/internal/handlers"
	"github.com/flockhq/flock/internal/handlers/httpapi"
	"github.com/flockhq/flock/internal/infrastructure/config"
	"github.com/flockhq/flock/internal/infrastructure/database"
	"github.com/flockhq/flock/internal/repositories/sqlstore"
	"github.com/flockhq/flock/internal/schemas"
	"github.com/flockhq/flock/internal/services"
	"github.com/flockhq/flock/internal/services/authorization"
	"github.com/flockhq/flock/pkg/cache/memorycache"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

const bufSize = 1024 * 1024

// E2ETestServer is a full flock stack on a temporary SQLite database,
// served over an in-memory gRPC listener and a Fiber app
type E2ETestServer struct {
	Server   *grpc.Server
	Conn     *grpc.ClientConn
	HTTP     *httpapi.Server
	DB       *database.DB
	Listener *bufconn.Listener

	Schemas       *services.SchemaService
	Records       *services.RecordService
	Keys          *services.APIKeyService
	Authenticator *authorization.Authenticator
}

// SetupE2ETest starts a server with the church schema
func SetupE2ETest(t *testing.T) *E2ETestServer {
	t.Helper()
	return SetupE2ETestWithSchema(t, schemas.Church())
}

// SetupE2ETestWithSchema starts a server whose active schema is dsl
func SetupE2ETestWithSchema(t *testing.T, dsl string) *E2ETestServer {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver:     config.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "flock_e2e.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	dialect := sqlstore.DialectFor(db.Driver)
	celEngine, err := authorization.NewCELEngine()
	if err != nil {
		t.Fatalf("failed to create CEL engine: %v", err)
	}

	schemaService := services.NewSchemaService(sqlstore.NewSchemaRepository(db.DB, dialect), celEngine)
	if _, err := schemaService.WriteSchema(context.Background(), dsl); err != nil {
		t.Fatalf("failed to write schema: %v", err)
	}

	keyCache, err := memorycache.New(&memorycache.Config{MaxSizeBytes: 1 << 20, DefaultTTL: time.Minute})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	keyRepo := sqlstore.NewAPIKeyRepository(db.DB, dialect)
	authenticator := authorization.NewAuthenticatorWithCache(keyRepo, keyCache, time.Minute)
	recordService := services.NewRecordService(
		sqlstore.NewRecordRepository(db.DB, dialect),
		schemaService,
		authorization.NewChecker(celEngine),
	)
	keyService := services.NewAPIKeyService(keyRepo, schemaService, authenticator)

	// Create in-memory gRPC server with bufconn
	listener := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.ChainUnaryInterceptor(
		handlers.LoggingUnaryInterceptor(zerolog.Nop()),
		handlers.AuthUnaryInterceptor(authenticator),
	))
	handlers.RegisterDataServer(server, handlers.NewDataHandler(recordService, schemaService))
	handlers.RegisterSchemaServer(server, handlers.NewSchemaHandler(schemaService))

	go func() {
		if err := server.Serve(listener); err != nil {
			t.Logf("server error: %v", err)
		}
	}()

	bufDialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}
	conn, err := grpc.NewClient(
		"passthrough:///bufconn",
		grpc.WithContextDialer(bufDialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("failed to create client connection: %v", err)
	}

	e := &E2ETestServer{
		Server:   server,
		Conn:     conn,
		DB:       db,
		Listener: listener,
		HTTP: httpapi.New(httpapi.Options{
			Records:       recordService,
			Schemas:       schemaService,
			Authenticator: authenticator,
			Logger:        zerolog.Nop(),
			HealthCheck:   db.HealthCheck,
		}),
		Schemas:       schemaService,
		Records:       recordService,
		Keys:          keyService,
		Authenticator: authenticator,
	}
	t.Cleanup(func() { e.Teardown(t) })
	return e
}

// Teardown stops the servers and closes the database
func (e *E2ETestServer) Teardown(t *testing.T) {
	t.Helper()

	if e.Conn != nil {
		e.Conn.Close()
	}
	if e.Server != nil {
		e.Server.Stop()
	}
	if e.Listener != nil {
		e.Listener.Close()
	}
	if e.DB != nil {
		e.DB.Close()
	}
}

// IssueKey creates a valid API key and returns the raw secret
func (e *E2ETestServer) IssueKey(t *testing.T, scopes ...string) string {
	t.Helper()

	issued, err := e.Keys.Create(context.Background(), "e2e", scopes)
	if err != nil {
		t.Fatalf("failed to issue api key: %v", err)
	}
	return issued.RawKey
}

// IssueExpiredKey creates a key whose 30-day lifetime ended yesterday
func (e *E2ETestServer) IssueExpiredKey(t *testing.T) string {
	t.Helper()

	e.Keys.SetClock(func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) })
	defer e.Keys.SetClock(time.Now)
	return e.IssueKey(t)
}

// Backend returns a remote backend authenticating with apiKey
func (e *E2ETestServer) Backend(apiKey string) *client.RemoteBackend {
	return client.NewRemoteBackend(e.Conn, apiKey)
}

// Client returns a typed client authenticating with apiKey
func (e *E2ETestServer) Client(apiKey string) *client.Client {
	return client.New(e.Backend(apiKey))
}

// InvokeSchema calls a flock.v1.Schema method with args
func (e *E2ETestServer) InvokeSchema(ctx context.Context, apiKey, method string, args map[string]any) (map[string]any, error) {
	req, err := structpb.NewStruct(args)
	if err != nil {
		return nil, err
	}
	resp := new(structpb.Struct)
	if err := e.Conn.Invoke(withAPIKey(ctx, apiKey), method, req, resp); err != nil {
		return nil, err
	}
	return resp.AsMap(), nil
}

func withAPIKey(ctx context.Context, apiKey string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, handlers.APIKeyMetadata, apiKey)
}
