// Package validation checks request payloads against their struct tags.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"account-service/internal/models"
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{4,63}$`)

	validate = newValidator()
)

// FieldError describes one rejected field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Rule)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		switch value := field.Interface().(type) {
		case decimal.Decimal:
			return value.String()
		case uuid.UUID:
			if value == uuid.Nil {
				return ""
			}
			return value.String()
		}
		return nil
	}, decimal.Decimal{}, uuid.UUID{})

	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "money", func(fl validator.FieldLevel) bool {
		d, ok := parseDecimal(fl)
		return ok && IsMoney(d)
	})
	mustRegister(v, "positive", func(fl validator.FieldLevel) bool {
		d, ok := parseDecimal(fl)
		return ok && d.IsPositive()
	})
	mustRegister(v, "nonnegative", func(fl validator.FieldLevel) bool {
		d, ok := parseDecimal(fl)
		return ok && !d.IsNegative()
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

func parseDecimal(fl validator.FieldLevel) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// IsMoney reports whether d fits a balance column: at most two fractional
// digits and an absolute value below 10^8.
func IsMoney(d decimal.Decimal) bool {
	return d.Equal(d.Round(models.BalanceScale)) && d.Abs().LessThan(models.MaxBalance)
}

// Struct validates input and returns *Error describing every failed field.
func Struct(input interface{}) error {
	err := validate.Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	verr := &Error{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		verr.Fields = append(verr.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
	}
	return verr
}
