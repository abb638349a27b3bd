// Package validation builds the go-playground validator shared by the record
// service, the typed client and the WhatsApp notifier.
package validation

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// E164Tag is the validator tag for phone numbers in E.164 form
const E164Tag = "e164"

// A country code never starts with 0. The built-in e164 rule allows it.
var e164Pattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

var shared = New()

// New returns a validator whose e164 tag only accepts "+" followed by 8 to 15
// digits with a non-zero country code.
func New(opts ...validator.Option) *validator.Validate {
	v := validator.New(opts...)
	if err := v.RegisterValidation(E164Tag, func(fl validator.FieldLevel) bool {
		return e164Pattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// E164 validates a single phone number
func E164(phone string) error {
	return shared.Var(phone, E164Tag)
}
