// Package frontend holds the interactive operations of flockctl.
package frontend

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flockhq/flock/internal/client"
	"github.com/flockhq/flock/internal/entities"
)

// ErrAborted is returned when the operator leaves a prompt empty or closes input
var ErrAborted = errors.New("aborted")

// PersonCreator creates Person records. *client.PersonClient satisfies it.
type PersonCreator interface {
	Create(ctx context.Context, p *client.Person) (*client.Person, error)
}

// Prompter asks blocking line questions on in and writes prompts to out
type Prompter struct {
	scanner *bufio.Scanner
	out     io.Writer
}

// NewPrompter creates a Prompter
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{scanner: bufio.NewScanner(in), out: out}
}

// Ask prints label and returns the trimmed answer. An empty answer or end of
// input aborts.
func (p *Prompter) Ask(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	if !p.scanner.Scan() {
		if err := p.scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read %s: %w", label, err)
		}
		return "", fmt.Errorf("%w: no input for %s", ErrAborted, label)
	}
	answer := strings.TrimSpace(p.scanner.Text())
	if answer == "" {
		return "", fmt.Errorf("%w: %s is required", ErrAborted, label)
	}
	return answer, nil
}

// AddPerson prompts for a person's full name, address and WhatsApp number,
// then creates the person and waits for the result. The created person is
// returned and its id printed; on failure the error is returned after any
// field issues have been printed.
func AddPerson(ctx context.Context, persons PersonCreator, prompter *Prompter) (*client.Person, error) {
	fullName, err := prompter.Ask("Person's full name")
	if err != nil {
		return nil, err
	}
	address, err := prompter.Ask("Person's address")
	if err != nil {
		return nil, err
	}
	whatsapp, err := prompter.Ask("Person's WhatsApp number (E.164, e.g. +15551234567)")
	if err != nil {
		return nil, err
	}

	created, err := persons.Create(ctx, &client.Person{
		FullName:     fullName,
		Address:      address,
		WhatsappE164: whatsapp,
	})
	if err != nil {
		var verr *entities.ValidationError
		if errors.As(err, &verr) {
			for _, issue := range verr.Issues {
				fmt.Fprintf(prompter.out, "  %s: %s\n", issue.Field, issue.Message)
			}
		}
		return nil, fmt.Errorf("failed to add person: %w", err)
	}

	fmt.Fprintf(prompter.out, "Added person %s\n", created.ID)
	return created, nil
}
