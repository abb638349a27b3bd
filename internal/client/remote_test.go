package client

import (
	"context"
	"errors"
	"testing"

	"github.com/flockhq/flock/internal/entities"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestFromStatus_Messages(t *testing.T) {
	tests := []struct {
		name    string
		code    codes.Code
		msg     string
		want    error
		wantMsg string
	}{
		{
			name:    "dangling reference",
			code:    codes.FailedPrecondition,
			msg:     "dangling reference: PersonTag.tagID references missing Tag t1",
			want:    entities.ErrDanglingReference,
			wantMsg: "dangling reference: PersonTag.tagID references missing Tag t1",
		},
		{
			name:    "conflict",
			code:    codes.AlreadyExists,
			msg:     "conflict: Attendance with the same personID, meetingID already exists (a1)",
			want:    entities.ErrConflict,
			wantMsg: "conflict: Attendance with the same personID, meetingID already exists (a1)",
		},
		{
			name:    "not found with sentinel at the end",
			code:    codes.NotFound,
			msg:     "Person p1: record not found",
			want:    entities.ErrNotFound,
			wantMsg: "Person p1: record not found",
		},
		{
			name:    "message without the sentinel",
			code:    codes.PermissionDenied,
			msg:     "Notice create is not allowed",
			want:    entities.ErrPermissionDenied,
			wantMsg: "permission denied: Notice create is not allowed",
		},
		{
			name:    "empty message",
			code:    codes.Unauthenticated,
			want:    entities.ErrUnauthenticated,
			wantMsg: "unauthenticated",
		},
		{
			name:    "deadline",
			code:    codes.DeadlineExceeded,
			msg:     "context deadline exceeded",
			want:    context.DeadlineExceeded,
			wantMsg: "context deadline exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromStatus(status.Error(tt.code, tt.msg))
			if !errors.Is(err, tt.want) {
				t.Fatalf("FromStatus() = %v, want errors.Is %v", err, tt.want)
			}
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestFromStatus_PassesPlainErrors(t *testing.T) {
	plain := errors.New("boom")
	if err := FromStatus(plain); err != plain {
		t.Errorf("FromStatus(plain) = %v, want it unchanged", err)
	}
}
