package frontend

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/flockhq/flock/internal/client"
	"github.com/flockhq/flock/internal/entities"
)

type mockPersonCreator struct {
	calls      int
	got        *client.Person
	createFunc func(p *client.Person) (*client.Person, error)
}

func (m *mockPersonCreator) Create(ctx context.Context, p *client.Person) (*client.Person, error) {
	m.calls++
	m.got = p
	if m.createFunc != nil {
		return m.createFunc(p)
	}
	created := *p
	created.ID = "person-1"
	return &created, nil
}

func TestAddPerson_Success(t *testing.T) {
	creator := &mockPersonCreator{}
	in := strings.NewReader("  Grace Hopper \n1 Navy Way\n+15551234567\n")
	var out bytes.Buffer

	created, err := AddPerson(context.Background(), creator, NewPrompter(in, &out))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.ID != "person-1" {
		t.Errorf("ID = %q, want person-1", created.ID)
	}
	if creator.calls != 1 {
		t.Fatalf("Create called %d times, want 1", creator.calls)
	}
	if creator.got.FullName != "Grace Hopper" {
		t.Errorf("FullName = %q, want trimmed answer", creator.got.FullName)
	}
	if creator.got.Address != "1 Navy Way" || creator.got.WhatsappE164 != "+15551234567" {
		t.Errorf("unexpected person: %+v", creator.got)
	}
	if !strings.Contains(out.String(), "Added person person-1") {
		t.Errorf("output %q does not report the new id", out.String())
	}
}

func TestAddPerson_Aborts(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty full name", input: "\n1 Navy Way\n+15551234567\n"},
		{name: "blank address", input: "Grace\n   \n+15551234567\n"},
		{name: "input closed before whatsapp", input: "Grace\n1 Navy Way\n"},
		{name: "no input", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &mockPersonCreator{}
			var out bytes.Buffer

			_, err := AddPerson(context.Background(), creator, NewPrompter(strings.NewReader(tt.input), &out))
			if !errors.Is(err, ErrAborted) {
				t.Fatalf("error = %v, want ErrAborted", err)
			}
			if creator.calls != 0 {
				t.Errorf("Create called %d times, want 0", creator.calls)
			}
		})
	}
}

func TestAddPerson_SurfacesCreateError(t *testing.T) {
	creator := &mockPersonCreator{
		createFunc: func(p *client.Person) (*client.Person, error) {
			verr := &entities.ValidationError{Model: "Person"}
			verr.Add("whatsappE164", "must be an E.164 phone number")
			return nil, verr
		},
	}
	var out bytes.Buffer

	_, err := AddPerson(context.Background(), creator, NewPrompter(strings.NewReader("Grace\n1 Navy Way\n555\n"), &out))
	if !errors.Is(err, entities.ErrInvalidRecord) {
		t.Fatalf("error = %v, want ErrInvalidRecord", err)
	}
	if !strings.Contains(out.String(), "whatsappE164: must be an E.164 phone number") {
		t.Errorf("output %q does not list the field issue", out.String())
	}
	if strings.Contains(out.String(), "Added person") {
		t.Errorf("output %q reports success on failure", out.String())
	}
}

func TestAddPerson_Unauthenticated(t *testing.T) {
	creator := &mockPersonCreator{
		createFunc: func(p *client.Person) (*client.Person, error) {
			return nil, entities.ErrKeyExpired
		},
	}

	_, err := AddPerson(context.Background(), creator, NewPrompter(strings.NewReader("Grace\n1 Navy Way\n+15551234567\n"), &bytes.Buffer{}))
	if !errors.Is(err, entities.ErrUnauthenticated) {
		t.Fatalf("error = %v, want ErrUnauthenticated", err)
	}
}
