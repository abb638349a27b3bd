package client

import (
	"context"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/services"
)

// LocalBackend calls a RecordService in the same process. The caller's
// context must carry the principal (see authorization.WithPrincipal).
type LocalBackend struct {
	records services.RecordServiceInterface
	schemas services.SchemaProvider
}

var _ Backend = (*LocalBackend)(nil)

// NewLocalBackend creates a backend over records. schemas supplies the
// field layouts used to encode dates.
func NewLocalBackend(records services.RecordServiceInterface, schemas services.SchemaProvider) *LocalBackend {
	return &LocalBackend{records: records, schemas: schemas}
}

func (b *LocalBackend) Create(ctx context.Context, model string, fields map[string]any) (map[string]any, error) {
	record, err := b.records.Create(ctx, model, fields)
	if err != nil {
		return nil, err
	}
	return b.encode(record), nil
}

func (b *LocalBackend) Get(ctx context.Context, model, id string) (map[string]any, error) {
	record, err := b.records.Get(ctx, model, id)
	if err != nil {
		return nil, err
	}
	return b.encode(record), nil
}

func (b *LocalBackend) Update(ctx context.Context, model, id string, fields map[string]any) (map[string]any, error) {
	record, err := b.records.Update(ctx, model, id, fields)
	if err != nil {
		return nil, err
	}
	return b.encode(record), nil
}

func (b *LocalBackend) Delete(ctx context.Context, model, id string) error {
	return b.records.Delete(ctx, model, id)
}

func (b *LocalBackend) List(ctx context.Context, model string, filter map[string]any) ([]map[string]any, error) {
	records, err := b.records.List(ctx, model, filter)
	if err != nil {
		return nil, err
	}
	return b.encodeAll(records), nil
}

func (b *LocalBackend) Related(ctx context.Context, model, id, relationship string) ([]map[string]any, error) {
	records, err := b.records.Related(ctx, model, id, relationship)
	if err != nil {
		return nil, err
	}
	return b.encodeAll(records), nil
}

func (b *LocalBackend) encode(record *entities.Record) map[string]any {
	var model *entities.Model
	if schema, err := b.schemas.Current(); err == nil {
		model = schema.GetModel(record.Model)
	}
	return record.Encode(model)
}

func (b *LocalBackend) encodeAll(records []*entities.Record) []map[string]any {
	out := make([]map[string]any, 0, len(records))
	for _, record := range records {
		out = append(out, b.encode(record))
	}
	return out
}
