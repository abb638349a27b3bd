// Package client is the typed client for the church schema. A Client is
// built over a Backend and passed to the code that needs it.
package client

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/validation"
	"github.com/go-playground/validator/v10"
)

// Backend executes data operations on records in wire form: a flat map of
// field values with dates as YYYY-MM-DD and datetimes as RFC 3339.
type Backend interface {
	Create(ctx context.Context, model string, fields map[string]any) (map[string]any, error)
	Get(ctx context.Context, model, id string) (map[string]any, error)
	Update(ctx context.Context, model, id string, fields map[string]any) (map[string]any, error)
	Delete(ctx context.Context, model, id string) error
	List(ctx context.Context, model string, filter map[string]any) ([]map[string]any, error)
	Related(ctx context.Context, model, id, relationship string) ([]map[string]any, error)
}

// Filter selects records whose fields equal the given values
type Filter map[string]any

// Client gives typed access to every model of the church schema
type Client struct {
	persons      *PersonClient
	meetings     *MeetingClient
	attendances  *AttendanceClient
	meetingRoles *MeetingRoleClient
	tags         *TagClient
	personTags   *PersonTagClient
	meetingTags  *MeetingTagClient
}

// New creates a Client over backend
func New(backend Backend) *Client {
	validate := validation.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Client{
		persons:      &PersonClient{Table: newTable(backend, validate, "Person", (*Person).fields)},
		meetings:     &MeetingClient{Table: newTable(backend, validate, "Meeting", (*Meeting).fields)},
		attendances:  &AttendanceClient{Table: newTable(backend, validate, "Attendance", (*Attendance).fields)},
		meetingRoles: &MeetingRoleClient{Table: newTable(backend, validate, "MeetingRole", (*MeetingRole).fields)},
		tags:         &TagClient{Table: newTable(backend, validate, "Tag", (*Tag).fields)},
		personTags:   &PersonTagClient{Table: newTable(backend, validate, "PersonTag", (*PersonTag).fields)},
		meetingTags:  &MeetingTagClient{Table: newTable(backend, validate, "MeetingTag", (*MeetingTag).fields)},
	}
}

func (c *Client) Persons() *PersonClient           { return c.persons }
func (c *Client) Meetings() *MeetingClient         { return c.meetings }
func (c *Client) Attendances() *AttendanceClient   { return c.attendances }
func (c *Client) MeetingRoles() *MeetingRoleClient { return c.meetingRoles }
func (c *Client) Tags() *TagClient                 { return c.tags }
func (c *Client) PersonTags() *PersonTagClient     { return c.personTags }
func (c *Client) MeetingTags() *MeetingTagClient   { return c.meetingTags }

// Table implements the data operations shared by every model
type Table[T any] struct {
	backend  Backend
	validate *validator.Validate
	model    string
	toFields func(*T) map[string]any
}

func newTable[T any](backend Backend, validate *validator.Validate, model string, toFields func(*T) map[string]any) *Table[T] {
	return &Table[T]{backend: backend, validate: validate, model: model, toFields: toFields}
}

// Model returns the schema model name
func (t *Table[T]) Model() string {
	return t.model
}

// Create validates v and stores it. The returned value carries the
// generated id and timestamps.
func (t *Table[T]) Create(ctx context.Context, v *T) (*T, error) {
	if err := t.check(v); err != nil {
		return nil, err
	}
	raw, err := t.backend.Create(ctx, t.model, t.toFields(v))
	if err != nil {
		return nil, err
	}
	return decode[T](raw)
}

// Get fetches one record by id
func (t *Table[T]) Get(ctx context.Context, id string) (*T, error) {
	raw, err := t.backend.Get(ctx, t.model, id)
	if err != nil {
		return nil, err
	}
	return decode[T](raw)
}

// Update replaces every field of record id with the values of v. Empty
// optional values are cleared.
func (t *Table[T]) Update(ctx context.Context, id string, v *T) (*T, error) {
	if err := t.check(v); err != nil {
		return nil, err
	}
	fields := t.toFields(v)
	raw, err := t.backend.Update(ctx, t.model, id, fields)
	if err != nil {
		return nil, err
	}
	return decode[T](raw)
}

// Delete removes record id. Records that are still referenced cannot be deleted.
func (t *Table[T]) Delete(ctx context.Context, id string) error {
	return t.backend.Delete(ctx, t.model, id)
}

// List returns the records matching filter, oldest first
func (t *Table[T]) List(ctx context.Context, filter Filter) ([]*T, error) {
	raws, err := t.backend.List(ctx, t.model, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raws)
}

func (t *Table[T]) check(v *T) error {
	if v == nil {
		return fmt.Errorf("%w: %s is nil", entities.ErrInvalidRecord, t.model)
	}
	if err := t.validate.Struct(v); err != nil {
		return validationError(t.model, err)
	}
	return nil
}

// hasMany follows a relationship that yields any number of records
func hasMany[T any](ctx context.Context, backend Backend, model, id, relationship string) ([]*T, error) {
	raws, err := backend.Related(ctx, model, id, relationship)
	if err != nil {
		return nil, err
	}
	return decodeAll[T](raws)
}

// belongsTo follows a relationship to the owning record
func belongsTo[T any](ctx context.Context, backend Backend, model, id, relationship string) (*T, error) {
	raws, err := backend.Related(ctx, model, id, relationship)
	if err != nil {
		return nil, err
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("%s %s has no %s: %w", model, id, relationship, entities.ErrNotFound)
	}
	return decode[T](raws[0])
}
