package sqlstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flockhq/flock/internal/entities"
	"github.com/lib/pq"
	sqlite3 "modernc.org/sqlite/lib"
)

// classify maps driver constraint violations onto domain errors
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", entities.ErrConflict, pqErr.Message)
		case "23503":
			return fmt.Errorf("%w: %s", entities.ErrDanglingReference, pqErr.Message)
		}
		return err
	}

	// modernc.org/sqlite reports extended result codes
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %s", entities.ErrConflict, err.Error())
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return fmt.Errorf("%w: %s", entities.ErrDanglingReference, err.Error())
		}
	}

	// mattn/go-sqlite3 only exposes codes as struct fields
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %s", entities.ErrConflict, msg)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %s", entities.ErrDanglingReference, msg)
	}

	return err
}
