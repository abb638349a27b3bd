package validation

import (
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestE164(t *testing.T) {
	tests := []struct {
		phone   string
		wantErr bool
	}{
		{phone: "+15551234567"},
		{phone: "+6281234567890"},
		{phone: "+12345678"},
		{phone: "+01234567", wantErr: true},
		{phone: "+0015551234567", wantErr: true},
		{phone: "15551234567", wantErr: true},
		{phone: "+1234567", wantErr: true},
		{phone: "+1234567890123456", wantErr: true},
		{phone: "+1 555 123 4567", wantErr: true},
		{phone: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			err := E164(tt.phone)
			if (err != nil) != tt.wantErr {
				t.Errorf("E164(%q) error = %v, wantErr %v", tt.phone, err, tt.wantErr)
			}
		})
	}
}

func TestNew_StructTag(t *testing.T) {
	type contact struct {
		Phone string `validate:"required,e164"`
	}

	v := New(validator.WithRequiredStructEnabled())
	if err := v.Struct(contact{Phone: "+15551234567"}); err != nil {
		t.Errorf("expected valid phone, got %v", err)
	}

	err := v.Struct(contact{Phone: "+01234567"})
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) != 1 || fieldErrs[0].Tag() != E164Tag {
		t.Errorf("expected one e164 failure, got %v", err)
	}
}
