package handlers

import (
	"context"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/services"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// SchemaHandler handles flock.v1.Schema requests
type SchemaHandler struct {
	schemaService services.SchemaServiceInterface
}

var _ SchemaServer = (*SchemaHandler)(nil)

// NewSchemaHandler creates a new SchemaHandler
func NewSchemaHandler(schemaService services.SchemaServiceInterface) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService}
}

// Read handles the Read RPC. Without a version it returns the latest schema.
func (h *SchemaHandler) Read(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	version, err := stringArg(req.AsMap(), "version")
	if err != nil {
		return nil, err
	}

	var schema *entities.Schema
	if version == "" {
		schema, err = h.schemaService.ReadSchema(ctx)
	} else {
		schema, err = h.schemaService.GetSchemaEntity(ctx, version)
	}
	if err != nil {
		return nil, toStatus(err)
	}

	createdAt := ""
	if !schema.CreatedAt.IsZero() {
		createdAt = schema.CreatedAt.UTC().Format(time.RFC3339)
	}

	return newStruct(map[string]any{
		"version":   schema.Version,
		"checksum":  schema.Checksum,
		"dsl":       schema.DSL,
		"createdAt": createdAt,
	})
}

// Validate handles the Validate RPC
func (h *SchemaHandler) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	dsl, err := requiredStringArg(req.AsMap(), "dsl")
	if err != nil {
		return nil, err
	}

	if err := h.schemaService.ValidateSchema(ctx, dsl); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"valid": true})
}

// Ddl handles the Ddl RPC. Without a DSL it renders the active schema.
func (h *SchemaHandler) Ddl(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args := req.AsMap()
	dialect, err := requiredStringArg(args, "dialect")
	if err != nil {
		return nil, err
	}
	dsl, err := stringArg(args, "dsl")
	if err != nil {
		return nil, err
	}

	if dsl == "" {
		current, err := h.schemaService.Current()
		if err != nil {
			return nil, toStatus(err)
		}
		dsl = current.DSL
	}

	switch dialect {
	case "postgres", "sqlite", "sqlite3":
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unsupported dialect %q", dialect)
	}

	statements, err := h.schemaService.GenerateDDL(dsl, dialect)
	if err != nil {
		return nil, toStatus(err)
	}

	out := make([]any, 0, len(statements))
	for _, stmt := range statements {
		out = append(out, stmt)
	}
	return newStruct(map[string]any{"statements": out})
}
