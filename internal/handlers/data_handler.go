package handlers

import (
	"context"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/services"
	"google.golang.org/protobuf/types/known/structpb"
)

// DataHandler handles flock.v1.Data requests.
// Requests are Structs with the keys model, id, fields, filter and relationship.
type DataHandler struct {
	records services.RecordServiceInterface
	schemas services.SchemaProvider
}

var _ DataServer = (*DataHandler)(nil)

// NewDataHandler creates a new DataHandler
func NewDataHandler(records services.RecordServiceInterface, schemas services.SchemaProvider) *DataHandler {
	return &DataHandler{
		records: records,
		schemas: schemas,
	}
}

// Create handles the Create RPC
func (h *DataHandler) Create(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args := req.AsMap()
	model, err := requiredStringArg(args, "model")
	if err != nil {
		return nil, err
	}
	fields, err := mapArg(args, "fields")
	if err != nil {
		return nil, err
	}

	record, err := h.records.Create(ctx, model, fields)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.recordResponse(record)
}

// Get handles the Get RPC
func (h *DataHandler) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	model, id, err := modelAndID(req)
	if err != nil {
		return nil, err
	}

	record, err := h.records.Get(ctx, model, id)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.recordResponse(record)
}

// Update handles the Update RPC. Only the given fields change; a null
// value clears an optional field.
func (h *DataHandler) Update(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	model, id, err := modelAndID(req)
	if err != nil {
		return nil, err
	}
	fields, err := mapArg(req.AsMap(), "fields")
	if err != nil {
		return nil, err
	}

	record, err := h.records.Update(ctx, model, id, fields)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.recordResponse(record)
}

// Delete handles the Delete RPC
func (h *DataHandler) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	model, id, err := modelAndID(req)
	if err != nil {
		return nil, err
	}

	if err := h.records.Delete(ctx, model, id); err != nil {
		return nil, toStatus(err)
	}
	return newStruct(map[string]any{"deleted": true})
}

// List handles the List RPC
func (h *DataHandler) List(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	args := req.AsMap()
	model, err := requiredStringArg(args, "model")
	if err != nil {
		return nil, err
	}
	filter, err := mapArg(args, "filter")
	if err != nil {
		return nil, err
	}

	records, err := h.records.List(ctx, model, filter)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.recordsResponse(records)
}

// Related handles the Related RPC
func (h *DataHandler) Related(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	model, id, err := modelAndID(req)
	if err != nil {
		return nil, err
	}
	relationship, err := requiredStringArg(req.AsMap(), "relationship")
	if err != nil {
		return nil, err
	}

	records, err := h.records.Related(ctx, model, id, relationship)
	if err != nil {
		return nil, toStatus(err)
	}
	return h.recordsResponse(records)
}

func modelAndID(req *structpb.Struct) (string, string, error) {
	args := req.AsMap()
	model, err := requiredStringArg(args, "model")
	if err != nil {
		return "", "", err
	}
	id, err := requiredStringArg(args, "id")
	if err != nil {
		return "", "", err
	}
	return model, id, nil
}

func (h *DataHandler) schema() *entities.Schema {
	schema, err := h.schemas.Current()
	if err != nil {
		return nil
	}
	return schema
}

func (h *DataHandler) recordResponse(record *entities.Record) (*structpb.Struct, error) {
	return newStruct(map[string]any{"record": encodeRecord(h.schema(), record)})
}

func (h *DataHandler) recordsResponse(records []*entities.Record) (*structpb.Struct, error) {
	schema := h.schema()
	out := make([]any, 0, len(records))
	for _, record := range records {
		out = append(out, encodeRecord(schema, record))
	}
	return newStruct(map[string]any{"records": out})
}
