package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/handlers"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RemoteBackend calls the flock.v1.Data gRPC service
type RemoteBackend struct {
	conn   grpc.ClientConnInterface
	apiKey string
}

var _ Backend = (*RemoteBackend)(nil)

// NewRemoteBackend creates a backend that sends apiKey with every call
func NewRemoteBackend(conn grpc.ClientConnInterface, apiKey string) *RemoteBackend {
	return &RemoteBackend{conn: conn, apiKey: apiKey}
}

func (b *RemoteBackend) Create(ctx context.Context, model string, fields map[string]any) (map[string]any, error) {
	resp, err := b.invoke(ctx, handlers.DataCreateMethod, map[string]any{"model": model, "fields": fields})
	if err != nil {
		return nil, err
	}
	return recordOf(resp), nil
}

func (b *RemoteBackend) Get(ctx context.Context, model, id string) (map[string]any, error) {
	resp, err := b.invoke(ctx, handlers.DataGetMethod, map[string]any{"model": model, "id": id})
	if err != nil {
		return nil, err
	}
	return recordOf(resp), nil
}

func (b *RemoteBackend) Update(ctx context.Context, model, id string, fields map[string]any) (map[string]any, error) {
	resp, err := b.invoke(ctx, handlers.DataUpdateMethod, map[string]any{"model": model, "id": id, "fields": fields})
	if err != nil {
		return nil, err
	}
	return recordOf(resp), nil
}

func (b *RemoteBackend) Delete(ctx context.Context, model, id string) error {
	_, err := b.invoke(ctx, handlers.DataDeleteMethod, map[string]any{"model": model, "id": id})
	return err
}

func (b *RemoteBackend) List(ctx context.Context, model string, filter map[string]any) ([]map[string]any, error) {
	resp, err := b.invoke(ctx, handlers.DataListMethod, map[string]any{"model": model, "filter": filter})
	if err != nil {
		return nil, err
	}
	return recordsOf(resp), nil
}

func (b *RemoteBackend) Related(ctx context.Context, model, id, relationship string) ([]map[string]any, error) {
	resp, err := b.invoke(ctx, handlers.DataRelatedMethod, map[string]any{"model": model, "id": id, "relationship": relationship})
	if err != nil {
		return nil, err
	}
	return recordsOf(resp), nil
}

func (b *RemoteBackend) invoke(ctx context.Context, method string, args map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entities.ErrInvalidRecord, err)
	}
	if b.apiKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, handlers.APIKeyMetadata, b.apiKey)
	}

	resp := new(structpb.Struct)
	if err := b.conn.Invoke(ctx, method, req, resp); err != nil {
		return nil, FromStatus(err)
	}
	return resp, nil
}

func recordOf(resp *structpb.Struct) map[string]any {
	return resp.GetFields()["record"].GetStructValue().AsMap()
}

func recordsOf(resp *structpb.Struct) []map[string]any {
	values := resp.GetFields()["records"].GetListValue().GetValues()
	out := make([]map[string]any, 0, len(values))
	for _, v := range values {
		out = append(out, v.GetStructValue().AsMap())
	}
	return out
}

// FromStatus turns a gRPC status error back into the flock error it was
// mapped from, so callers can use errors.Is and errors.As on either backend.
func FromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()

	switch st.Code() {
	case codes.InvalidArgument:
		for _, d := range st.Details() {
			if br, ok := d.(*errdetails.BadRequest); ok {
				verr := &entities.ValidationError{}
				if _, err := fmt.Sscanf(msg, "invalid %s", &verr.Model); err == nil {
					verr.Model = strings.TrimSuffix(verr.Model, ":")
				}
				for _, v := range br.GetFieldViolations() {
					verr.Issues = append(verr.Issues, entities.FieldIssue{Field: v.GetField(), Message: v.GetDescription()})
				}
				return verr
			}
		}
		return statusError(entities.ErrInvalidRecord, msg)
	case codes.FailedPrecondition:
		for _, d := range st.Details() {
			if pf, ok := d.(*errdetails.PreconditionFailure); ok {
				derr := &entities.DependentsError{Dependents: map[string]int{}}
				for _, v := range pf.GetViolations() {
					var n int
					var dependent string
					if _, err := fmt.Sscanf(v.GetDescription(), "%d %s rows reference %s %s", &n, &dependent, &derr.Model, &derr.ID); err != nil {
						n = 1
					}
					derr.Dependents[v.GetSubject()] = n
				}
				return derr
			}
		}
		return statusError(entities.ErrDanglingReference, msg)
	case codes.NotFound:
		return statusError(entities.ErrNotFound, msg)
	case codes.AlreadyExists:
		return statusError(entities.ErrConflict, msg)
	case codes.PermissionDenied:
		return statusError(entities.ErrPermissionDenied, msg)
	case codes.Unauthenticated:
		for _, d := range st.Details() {
			if info, ok := d.(*errdetails.ErrorInfo); ok {
				switch info.GetReason() {
				case handlers.ReasonAPIKeyExpired:
					return statusError(entities.ErrKeyExpired, msg)
				case handlers.ReasonAPIKeyRevoked:
					return statusError(entities.ErrKeyRevoked, msg)
				}
			}
		}
		return statusError(entities.ErrUnauthenticated, msg)
	case codes.Canceled:
		return statusError(context.Canceled, msg)
	case codes.DeadlineExceeded:
		return statusError(context.DeadlineExceeded, msg)
	}
	return err
}

// remoteError keeps the server's message and unwraps to the flock error the
// status was mapped from
type remoteError struct {
	kind error
	msg  string
}

func statusError(kind error, msg string) error {
	return &remoteError{kind: kind, msg: msg}
}

// Error returns the server message, prefixed with the error kind only when
// the server did not already include it.
func (e *remoteError) Error() string {
	if e.msg == "" {
		return e.kind.Error()
	}
	if strings.Contains(e.msg, e.kind.Error()) {
		return e.msg
	}
	return e.kind.Error() + ": " + e.msg
}

func (e *remoteError) Unwrap() error { return e.kind }
