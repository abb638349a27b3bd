package handlers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	return s
}

// === Data Tests ===

func TestDataHandler_Create_Success(t *testing.T) {
	created := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)
	mockService := &mockRecordService{
		createFunc: func(ctx context.Context, model string, fields map[string]any) (*entities.Record, error) {
			if model != "Meeting" {
				t.Errorf("expected model Meeting, got %s", model)
			}
			if fields["meetingDate"] != "2025-03-09" {
				t.Errorf("expected meetingDate to be passed through, got %v", fields["meetingDate"])
			}
			return &entities.Record{
				Model: "Meeting",
				ID:    "m-1",
				Fields: map[string]any{
					"meetingDate":  time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
					"messageTitle": nil,
				},
				CreatedAt: created,
				UpdatedAt: created,
			}, nil
		},
	}

	handler := NewDataHandler(mockService, staticSchemas{schema: meetingSchema()})

	resp, err := handler.Create(context.Background(), mustStruct(t, map[string]any{
		"model":  "Meeting",
		"fields": map[string]any{"meetingDate": "2025-03-09"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	record := resp.GetFields()["record"].GetStructValue().AsMap()
	if record["id"] != "m-1" {
		t.Errorf("expected id m-1, got %v", record["id"])
	}
	if record["meetingDate"] != "2025-03-09" {
		t.Errorf("expected date-only meetingDate, got %v", record["meetingDate"])
	}
	if record["createdAt"] != "2025-03-02T10:00:00Z" {
		t.Errorf("unexpected createdAt %v", record["createdAt"])
	}
	if v, ok := record["messageTitle"]; !ok || v != nil {
		t.Errorf("expected null messageTitle, got %v", v)
	}
}

func TestDataHandler_MissingArguments(t *testing.T) {
	handler := NewDataHandler(&mockRecordService{}, staticSchemas{})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{
			name: "create without model",
			call: func() error {
				_, err := handler.Create(ctx, mustStruct(t, map[string]any{}))
				return err
			},
		},
		{
			name: "get without id",
			call: func() error {
				_, err := handler.Get(ctx, mustStruct(t, map[string]any{"model": "Person"}))
				return err
			},
		},
		{
			name: "related without relationship",
			call: func() error {
				_, err := handler.Related(ctx, mustStruct(t, map[string]any{"model": "Person", "id": "p-1"}))
				return err
			},
		},
		{
			name: "fields not an object",
			call: func() error {
				_, err := handler.Create(ctx, mustStruct(t, map[string]any{"model": "Person", "fields": "x"}))
				return err
			},
		},
		{
			name: "model not a string",
			call: func() error {
				_, err := handler.List(ctx, mustStruct(t, map[string]any{"model": 3}))
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			if status.Code(err) != codes.InvalidArgument {
				t.Errorf("expected InvalidArgument, got %v", err)
			}
		})
	}
}

func TestDataHandler_List(t *testing.T) {
	mockService := &mockRecordService{
		listFunc: func(ctx context.Context, model string, filter map[string]any) ([]*entities.Record, error) {
			if filter["messageTitle"] != "Advent" {
				t.Errorf("expected filter to be passed through, got %v", filter)
			}
			return []*entities.Record{
				{Model: "Meeting", ID: "m-1", Fields: map[string]any{"messageTitle": "Advent"}},
				{Model: "Meeting", ID: "m-2", Fields: map[string]any{"messageTitle": "Advent"}},
			}, nil
		},
	}
	handler := NewDataHandler(mockService, staticSchemas{schema: meetingSchema()})

	resp, err := handler.List(context.Background(), mustStruct(t, map[string]any{
		"model":  "Meeting",
		"filter": map[string]any{"messageTitle": "Advent"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records := resp.GetFields()["records"].GetListValue().GetValues()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if id := records[1].GetStructValue().GetFields()["id"].GetStringValue(); id != "m-2" {
		t.Errorf("expected insertion order, got %s", id)
	}
}

func TestDataHandler_ListEmpty(t *testing.T) {
	handler := NewDataHandler(&mockRecordService{}, staticSchemas{})

	resp, err := handler.List(context.Background(), mustStruct(t, map[string]any{"model": "Person"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := resp.GetFields()["records"].GetKind().(*structpb.Value_ListValue); !ok {
		t.Error("expected an empty list, not a missing key")
	}
}

func TestDataHandler_Related(t *testing.T) {
	mockService := &mockRecordService{
		relatedFunc: func(ctx context.Context, model, id, relationship string) ([]*entities.Record, error) {
			if model != "Person" || id != "p-1" || relationship != "tags" {
				t.Errorf("unexpected arguments %s %s %s", model, id, relationship)
			}
			return []*entities.Record{{Model: "PersonTag", ID: "pt-1", Fields: map[string]any{"personID": "p-1", "tagID": "t-1"}}}, nil
		},
	}
	handler := NewDataHandler(mockService, staticSchemas{})

	resp, err := handler.Related(context.Background(), mustStruct(t, map[string]any{
		"model":        "Person",
		"id":           "p-1",
		"relationship": "tags",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := len(resp.GetFields()["records"].GetListValue().GetValues()); n != 1 {
		t.Errorf("expected 1 related record, got %d", n)
	}
}

func TestDataHandler_Delete(t *testing.T) {
	deleted := ""
	handler := NewDataHandler(&mockRecordService{
		deleteFunc: func(ctx context.Context, model, id string) error {
			deleted = model + "/" + id
			return nil
		},
	}, staticSchemas{})

	resp, err := handler.Delete(context.Background(), mustStruct(t, map[string]any{"model": "Tag", "id": "t-1"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != "Tag/t-1" {
		t.Errorf("expected Tag/t-1 to be deleted, got %q", deleted)
	}
	if !resp.GetFields()["deleted"].GetBoolValue() {
		t.Error("expected deleted=true")
	}
}

func TestDataHandler_ErrorMapping(t *testing.T) {
	verr := &entities.ValidationError{Model: "Person"}
	verr.Add("fullName", "is required")

	tests := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "validation", err: verr, wantCode: codes.InvalidArgument},
		{name: "dangling", err: fmt.Errorf("%w: PersonTag.tagID", entities.ErrDanglingReference), wantCode: codes.FailedPrecondition},
		{name: "not found", err: fmt.Errorf("Person p-9: %w", entities.ErrNotFound), wantCode: codes.NotFound},
		{name: "unknown model", err: fmt.Errorf("%w: Widget", entities.ErrUnknownModel), wantCode: codes.NotFound},
		{name: "unique conflict", err: fmt.Errorf("%w: duplicate attendance", entities.ErrConflict), wantCode: codes.AlreadyExists},
		{name: "dependents", err: &entities.DependentsError{Model: "Person", ID: "p-1", Dependents: map[string]int{"Attendance": 2}}, wantCode: codes.FailedPrecondition},
		{name: "expired key", err: entities.ErrKeyExpired, wantCode: codes.Unauthenticated},
		{name: "permission denied", err: entities.ErrPermissionDenied, wantCode: codes.PermissionDenied},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: codes.DeadlineExceeded},
		{name: "storage failure", err: fmt.Errorf("failed to insert: disk full"), wantCode: codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewDataHandler(&mockRecordService{
				createFunc: func(ctx context.Context, model string, fields map[string]any) (*entities.Record, error) {
					return nil, tt.err
				},
			}, staticSchemas{})

			_, err := handler.Create(context.Background(), mustStruct(t, map[string]any{"model": "Person"}))
			if got := status.Code(err); got != tt.wantCode {
				t.Errorf("expected %v, got %v (%v)", tt.wantCode, got, err)
			}
		})
	}
}

func TestToStatus_Details(t *testing.T) {
	verr := &entities.ValidationError{Model: "Person"}
	verr.Add("fullName", "is required")
	verr.Add("whatsappE164", "must be an E.164 phone number like +15551234567")

	st, _ := status.FromError(toStatus(verr))
	var badRequest *errdetails.BadRequest
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			badRequest = br
		}
	}
	if badRequest == nil {
		t.Fatal("expected BadRequest details")
	}
	if len(badRequest.GetFieldViolations()) != 2 {
		t.Errorf("expected 2 field violations, got %d", len(badRequest.GetFieldViolations()))
	}

	st, _ = status.FromError(toStatus(fmt.Errorf("%w: flk_1234 expired", entities.ErrKeyExpired)))
	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if ei, ok := d.(*errdetails.ErrorInfo); ok {
			info = ei
		}
	}
	if info == nil || info.GetReason() != ReasonAPIKeyExpired {
		t.Errorf("expected ErrorInfo reason %s, got %v", ReasonAPIKeyExpired, info)
	}
}

func TestToStatus_PassesStatusThrough(t *testing.T) {
	in := status.Error(codes.ResourceExhausted, "slow down")
	if got := status.Code(toStatus(in)); got != codes.ResourceExhausted {
		t.Errorf("expected ResourceExhausted, got %v", got)
	}
	if toStatus(nil) != nil {
		t.Error("expected nil for nil error")
	}
}
