package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/flockhq/flock/internal/entities"
)

// Notifier delivers a text message to an E.164 phone number
type Notifier interface {
	Send(ctx context.Context, phoneE164, message string) error
}

// ReminderFailure records a recipient that could not be reminded
type ReminderFailure struct {
	PersonID string
	Phone    string
	Err      error
}

// ReminderReport summarizes a reminder run
type ReminderReport struct {
	MeetingID string
	Sent      []string // Person IDs that were messaged
	Failures  []ReminderFailure
}

// Err joins every per-recipient failure, or returns nil
func (r *ReminderReport) Err() error {
	errs := make([]error, 0, len(r.Failures))
	for _, f := range r.Failures {
		errs = append(errs, fmt.Errorf("person %s (%s): %w", f.PersonID, f.Phone, f.Err))
	}
	return errors.Join(errs...)
}

// ReminderService messages everyone holding a role in a meeting
type ReminderService struct {
	records  RecordServiceInterface
	notifier Notifier
}

// NewReminderService creates a new ReminderService
func NewReminderService(records RecordServiceInterface, notifier Notifier) *ReminderService {
	return &ReminderService{records: records, notifier: notifier}
}

// Remind sends one message per MeetingRole of the meeting. A failed send is
// recorded in the report and the run continues with the next recipient.
func (s *ReminderService) Remind(ctx context.Context, meetingID string) (*ReminderReport, error) {
	meeting, err := s.records.Get(ctx, "Meeting", meetingID)
	if err != nil {
		return nil, err
	}

	roles, err := s.records.Related(ctx, "Meeting", meetingID, "roles")
	if err != nil {
		return nil, fmt.Errorf("failed to load roles of meeting %s: %w", meetingID, err)
	}

	report := &ReminderReport{MeetingID: meetingID}
	for _, role := range roles {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		personID, _ := role.Fields["personID"].(string)
		people, err := s.records.Related(ctx, "MeetingRole", role.ID, "person")
		if err != nil || len(people) == 0 {
			if err == nil {
				err = fmt.Errorf("%w: person %s", entities.ErrNotFound, personID)
			}
			report.Failures = append(report.Failures, ReminderFailure{PersonID: personID, Err: err})
			continue
		}

		person := people[0]
		phone, _ := person.Fields["whatsappE164"].(string)
		if err := s.notifier.Send(ctx, phone, ReminderMessage(person, role, meeting)); err != nil {
			report.Failures = append(report.Failures, ReminderFailure{PersonID: person.ID, Phone: phone, Err: err})
			continue
		}
		report.Sent = append(report.Sent, person.ID)
	}

	return report, nil
}

// ReminderMessage renders the reminder text for one role holder
func ReminderMessage(person, role, meeting *entities.Record) string {
	name, _ := person.Fields["fullName"].(string)

	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", name)

	what := "taking part"
	if roleType, ok := role.Fields["roleType"].(string); ok && roleType != "" {
		what = "serving as " + strings.ToLower(strings.ReplaceAll(roleType, "_", " "))
	}
	fmt.Fprintf(&b, "This is a reminder that you are %s", what)

	if date, ok := meeting.Fields["meetingDate"].(time.Time); ok {
		fmt.Fprintf(&b, " at the meeting on %s", date.Format("Monday, 2 January 2006"))
	}
	b.WriteString(".")

	if title, ok := meeting.Fields["messageTitle"].(string); ok && title != "" {
		fmt.Fprintf(&b, "\nMessage: %s", title)
	}
	if details, ok := role.Fields["details"].(string); ok && details != "" {
		fmt.Fprintf(&b, "\nDetails: %s", details)
	}

	return b.String()
}
