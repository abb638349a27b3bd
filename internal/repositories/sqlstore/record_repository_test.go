package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/flockhq/flock/internal/entities"
)

func newRecord(model, id string, fields map[string]any) *entities.Record {
	now := time.Now().UTC()
	return &entities.Record{Model: model, ID: id, Fields: fields, CreatedAt: now, UpdatedAt: now}
}

func insertPerson(t *testing.T, s *testStore, repo *RecordRepository, id string) {
	t.Helper()
	rec := newRecord("Person", id, map[string]any{
		"fullName":     "Jane Doe",
		"address":      "123 Main St",
		"whatsappE164": "+15551234567",
	})
	if err := repo.Insert(context.Background(), s.schema.GetModel("Person"), rec); err != nil {
		t.Fatalf("Failed to insert person: %v", err)
	}
}

func TestRecordRepository_InsertAndGet(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewRecordRepository(s.db, s.dialect).(*RecordRepository)
		ctx := context.Background()

		insertPerson(t, s, repo, "p1")

		got, err := repo.Get(ctx, s.schema.GetModel("Person"), "p1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.ID != "p1" || got.Fields["fullName"] != "Jane Doe" || got.Fields["whatsappE164"] != "+15551234567" {
			t.Errorf("unexpected record: %+v", got)
		}
		if got.Fields["notes"] != nil {
			t.Errorf("expected unset notes to be nil, got %v", got.Fields["notes"])
		}
		if got.CreatedAt.IsZero() {
			t.Error("expected createdAt to round trip")
		}

		_, err = repo.Get(ctx, s.schema.GetModel("Person"), "missing")
		if !errors.Is(err, entities.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRecordRepository_DateAndDateTime(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewRecordRepository(s.db, s.dialect).(*RecordRepository)
		ctx := context.Background()
		meeting := s.schema.GetModel("Meeting")
		attendance := s.schema.GetModel("Attendance")

		day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		if err := repo.Insert(ctx, meeting, newRecord("Meeting", "m1", map[string]any{"meetingDate": day})); err != nil {
			t.Fatalf("Failed to insert meeting: %v", err)
		}
		insertPerson(t, s, repo, "p1")

		checkIn := time.Date(2026, 3, 1, 9, 30, 15, 123000000, time.UTC)
		rec := newRecord("Attendance", "a1", map[string]any{
			"status":    "PRESENT",
			"checkInAt": checkIn,
			"personID":  "p1",
			"meetingID": "m1",
		})
		if err := repo.Insert(ctx, attendance, rec); err != nil {
			t.Fatalf("Failed to insert attendance: %v", err)
		}

		gotMeeting, err := repo.Get(ctx, meeting, "m1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if d, ok := gotMeeting.Fields["meetingDate"].(time.Time); !ok || !d.Equal(day) {
			t.Errorf("expected meetingDate %v, got %v", day, gotMeeting.Fields["meetingDate"])
		}

		gotAttendance, err := repo.Get(ctx, attendance, "a1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if ts, ok := gotAttendance.Fields["checkInAt"].(time.Time); !ok || !ts.Equal(checkIn) {
			t.Errorf("expected checkInAt %v, got %v", checkIn, gotAttendance.Fields["checkInAt"])
		}
	})
}

func TestRecordRepository_Constraints(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewRecordRepository(s.db, s.dialect).(*RecordRepository)
		ctx := context.Background()
		attendance := s.schema.GetModel("Attendance")

		insertPerson(t, s, repo, "p1")
		day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		if err := repo.Insert(ctx, s.schema.GetModel("Meeting"), newRecord("Meeting", "m1", map[string]any{"meetingDate": day})); err != nil {
			t.Fatalf("Failed to insert meeting: %v", err)
		}

		t.Run("dangling foreign key", func(t *testing.T) {
			rec := newRecord("Attendance", "a0", map[string]any{"personID": "nobody", "meetingID": "m1"})
			err := repo.Insert(ctx, attendance, rec)
			if !errors.Is(err, entities.ErrDanglingReference) {
				t.Errorf("expected ErrDanglingReference, got %v", err)
			}
		})

		t.Run("enum check", func(t *testing.T) {
			rec := newRecord("Attendance", "a0", map[string]any{"status": "MAYBE", "personID": "p1", "meetingID": "m1"})
			if err := repo.Insert(ctx, attendance, rec); err == nil {
				t.Error("expected CHECK constraint to reject MAYBE")
			}
		})

		t.Run("unique pair", func(t *testing.T) {
			first := newRecord("Attendance", "a1", map[string]any{"personID": "p1", "meetingID": "m1"})
			if err := repo.Insert(ctx, attendance, first); err != nil {
				t.Fatalf("Failed to insert attendance: %v", err)
			}
			second := newRecord("Attendance", "a2", map[string]any{"personID": "p1", "meetingID": "m1"})
			if err := repo.Insert(ctx, attendance, second); !errors.Is(err, entities.ErrConflict) {
				t.Errorf("expected ErrConflict, got %v", err)
			}
		})

		t.Run("restrict delete", func(t *testing.T) {
			err := repo.Delete(ctx, s.schema.GetModel("Person"), "p1")
			if !errors.Is(err, entities.ErrConflict) {
				t.Errorf("expected ErrConflict, got %v", err)
			}
			if ok, _ := repo.Exists(ctx, s.schema.GetModel("Person"), "p1"); !ok {
				t.Error("person must survive a restricted delete")
			}
		})
	})
}

func TestRecordRepository_UpdateAndDelete(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewRecordRepository(s.db, s.dialect).(*RecordRepository)
		ctx := context.Background()
		person := s.schema.GetModel("Person")

		insertPerson(t, s, repo, "p1")

		rec, err := repo.Get(ctx, person, "p1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		rec.Fields["notes"] = "choir"
		rec.UpdatedAt = rec.UpdatedAt.Add(time.Second)
		if err := repo.Update(ctx, person, rec); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.Get(ctx, person, "p1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Fields["notes"] != "choir" {
			t.Errorf("expected notes to be updated, got %v", got.Fields["notes"])
		}
		if !got.UpdatedAt.After(got.CreatedAt) {
			t.Errorf("expected updatedAt after createdAt: %v / %v", got.UpdatedAt, got.CreatedAt)
		}

		missing := newRecord("Person", "missing", rec.Fields)
		if err := repo.Update(ctx, person, missing); !errors.Is(err, entities.ErrNotFound) {
			t.Errorf("expected ErrNotFound on update, got %v", err)
		}

		if err := repo.Delete(ctx, person, "p1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete(ctx, person, "p1"); !errors.Is(err, entities.ErrNotFound) {
			t.Errorf("expected ErrNotFound on second delete, got %v", err)
		}
	})
}

func TestRecordRepository_ListAndCount(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewRecordRepository(s.db, s.dialect).(*RecordRepository)
		ctx := context.Background()
		tag := s.schema.GetModel("Tag")

		base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, name := range []string{"Youth", "Elder", "Choir"} {
			rec := newRecord("Tag", fmt.Sprintf("t%d", i), map[string]any{"name": name, "tagType": "group"})
			rec.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
			rec.UpdatedAt = rec.CreatedAt
			if i == 2 {
				rec.Fields["tagType"] = nil
			}
			if err := repo.Insert(ctx, tag, rec); err != nil {
				t.Fatalf("Failed to insert tag: %v", err)
			}
		}

		all, err := repo.List(ctx, tag, nil)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 || all[0].Fields["name"] != "Youth" || all[2].Fields["name"] != "Choir" {
			t.Errorf("expected tags in creation order, got %d", len(all))
		}

		groups, err := repo.List(ctx, tag, entities.Filter{"tagType": "group"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(groups) != 2 {
			t.Errorf("expected 2 group tags, got %d", len(groups))
		}

		untyped, err := repo.Count(ctx, tag, entities.Filter{"tagType": nil})
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if untyped != 1 {
			t.Errorf("expected 1 untyped tag, got %d", untyped)
		}

		byID, err := repo.Count(ctx, tag, entities.Filter{"id": "t1"})
		if err != nil || byID != 1 {
			t.Errorf("expected 1 tag by id, got %d (%v)", byID, err)
		}

		_, err = repo.List(ctx, tag, entities.Filter{"color": "red"})
		if !errors.Is(err, entities.ErrInvalidRecord) {
			t.Errorf("expected ErrInvalidRecord for unknown filter field, got %v", err)
		}
	})
}

func TestRecordRepository_Exists(t *testing.T) {
	forEachDialect(t, func(t *testing.T, s *testStore) {
		repo := NewRecordRepository(s.db, s.dialect).(*RecordRepository)
		ctx := context.Background()
		person := s.schema.GetModel("Person")

		insertPerson(t, s, repo, "p1")

		tests := []struct {
			id   string
			want bool
		}{
			{"p1", true},
			{"p2", false},
		}
		for _, tt := range tests {
			got, err := repo.Exists(ctx, person, tt.id)
			if err != nil {
				t.Fatalf("Exists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Exists(%s) = %v, want %v", tt.id, got, tt.want)
			}
		}
	})
}
