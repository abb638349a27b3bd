package client

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/flockhq/flock/internal/entities"
	"github.com/flockhq/flock/internal/validation"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

var timeType = reflect.TypeOf(time.Time{})

// stringToTimeHook parses datetimes (RFC 3339) and dates (YYYY-MM-DD)
func stringToTimeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != timeType {
		return data, nil
	}
	s := data.(string)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(entities.DateTimeLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(entities.DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid time %q", s)
	}
	return t, nil
}

func decode[T any](raw map[string]any) (*T, error) {
	out := new(T)
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: stringToTimeHook,
		Result:     out,
		TagName:    "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode record: %w", err)
	}
	return out, nil
}

func decodeAll[T any](raws []map[string]any) ([]*T, error) {
	out := make([]*T, 0, len(raws))
	for _, raw := range raws {
		v, err := decode[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// validationError converts struct tag failures into the error the server
// would return for the same record.
func validationError(model string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", entities.ErrInvalidRecord, err)
	}

	verr := &entities.ValidationError{Model: model}
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			verr.Add(fe.Field(), "is required")
		case validation.E164Tag:
			verr.Add(fe.Field(), "must be an E.164 phone number like +15551234567")
		case "oneof":
			verr.Add(fe.Field(), "must be one of %s, got %q", fe.Param(), fe.Value())
		default:
			verr.Add(fe.Field(), "failed %s validation", fe.Tag())
		}
	}
	return verr
}
