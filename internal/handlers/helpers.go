package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/flockhq/flock/internal/entities"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/structpb"
)

// ErrorDomain identifies flock in google.rpc.ErrorInfo details
const ErrorDomain = "flock"

// Reasons attached to Unauthenticated errors
const (
	ReasonAPIKeyExpired = "API_KEY_EXPIRED"
	ReasonAPIKeyRevoked = "API_KEY_REVOKED"
	ReasonAPIKeyInvalid = "API_KEY_INVALID"
)

// === Shared helper functions for all handlers ===

func stringArg(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", status.Errorf(codes.InvalidArgument, "%s must be a string", key)
	}
	return s, nil
}

func requiredStringArg(args map[string]any, key string) (string, error) {
	s, err := stringArg(args, key)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s is required", key)
	}
	return s, nil
}

func mapArg(args map[string]any, key string) (map[string]any, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return map[string]any{}, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "%s must be an object", key)
	}
	return m, nil
}

// encodeRecord renders a record with the field layouts of its model
func encodeRecord(schema *entities.Schema, record *entities.Record) map[string]any {
	var model *entities.Model
	if schema != nil {
		model = schema.GetModel(record.Model)
	}
	return record.Encode(model)
}

func newStruct(m map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

// toStatus maps service errors to gRPC status errors with rich details
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var verr *entities.ValidationError
	var derr *entities.DependentsError

	switch {
	case errors.As(err, &verr):
		violations := make([]*errdetails.BadRequest_FieldViolation, 0, len(verr.Issues))
		for _, issue := range verr.Issues {
			violations = append(violations, &errdetails.BadRequest_FieldViolation{
				Field:       issue.Field,
				Description: issue.Message,
			})
		}
		return withDetails(status.New(codes.InvalidArgument, err.Error()), &errdetails.BadRequest{FieldViolations: violations})

	case errors.As(err, &derr):
		models := make([]string, 0, len(derr.Dependents))
		for name := range derr.Dependents {
			models = append(models, name)
		}
		sort.Strings(models)
		violations := make([]*errdetails.PreconditionFailure_Violation, 0, len(models))
		for _, name := range models {
			violations = append(violations, &errdetails.PreconditionFailure_Violation{
				Type:        "DEPENDENTS",
				Subject:     name,
				Description: fmt.Sprintf("%d %s rows reference %s %s", derr.Dependents[name], name, derr.Model, derr.ID),
			})
		}
		return withDetails(status.New(codes.FailedPrecondition, err.Error()), &errdetails.PreconditionFailure{Violations: violations})

	case errors.Is(err, entities.ErrKeyExpired):
		return withDetails(status.New(codes.Unauthenticated, err.Error()), &errdetails.ErrorInfo{Reason: ReasonAPIKeyExpired, Domain: ErrorDomain})
	case errors.Is(err, entities.ErrKeyRevoked):
		return withDetails(status.New(codes.Unauthenticated, err.Error()), &errdetails.ErrorInfo{Reason: ReasonAPIKeyRevoked, Domain: ErrorDomain})
	case errors.Is(err, entities.ErrUnauthenticated):
		return withDetails(status.New(codes.Unauthenticated, err.Error()), &errdetails.ErrorInfo{Reason: ReasonAPIKeyInvalid, Domain: ErrorDomain})
	case errors.Is(err, entities.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, entities.ErrDanglingReference):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, entities.ErrInvalidRecord), errors.Is(err, entities.ErrInvalidSchema):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, entities.ErrConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, entities.ErrNotFound),
		errors.Is(err, entities.ErrUnknownModel),
		errors.Is(err, entities.ErrUnknownRelation),
		errors.Is(err, entities.ErrSchemaNotFound),
		errors.Is(err, entities.ErrKeyNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Errorf(codes.Internal, "internal error: %v", err)
	}
}

func withDetails(st *status.Status, detail protoadapt.MessageV1) error {
	rich, err := st.WithDetails(detail)
	if err != nil {
		return st.Err()
	}
	return rich.Err()
}
