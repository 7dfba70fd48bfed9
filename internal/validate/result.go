// Package validate turns tagged input structs into typed values. Constructors
// return a Result that is either Valid with the value or Invalid with
// field-level messages, so callers never see a half-validated input.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is wrapped by Result.Err for invalid results.
var ErrInvalid = errors.New("validation failed")

// FieldErrors maps a json field name to its message.
type FieldErrors map[string]string

// Error implements error with a stable, sorted message.
func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Result is Valid(value) or Invalid(errors).
type Result[T any] struct {
	value  T
	errors FieldErrors
}

// Valid wraps a value that passed validation.
func Valid[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Invalid wraps field errors.
func Invalid[T any](errs FieldErrors) Result[T] {
	if len(errs) == 0 {
		errs = FieldErrors{"_": "invalid"}
	}
	return Result[T]{errors: errs}
}

// OK reports whether the result is valid.
func (r Result[T]) OK() bool { return len(r.errors) == 0 }

// Value returns the wrapped value; it is the zero value when invalid.
func (r Result[T]) Value() T { return r.value }

// Errors returns field errors; nil when valid.
func (r Result[T]) Errors() FieldErrors { return r.errors }

// Unwrap returns the value or an error wrapping ErrInvalid.
func (r Result[T]) Unwrap() (T, error) {
	if r.OK() {
		return r.value, nil
	}
	var zero T
	return zero, r.Err()
}

// Err returns nil for valid results.
func (r Result[T]) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, r.errors)
}

var (
	engineOnce sync.Once
	engine     *validator.Validate
)

func instance() *validator.Validate {
	engineOnce.Do(func() {
		engine = validator.New(validator.WithRequiredStructEnabled())
		engine.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = engine.RegisterValidation("decimal_gte0", decimalNonNegative)
		_ = engine.RegisterValidation("decimal_gt0", decimalPositive)
	})
	return engine
}

// Struct runs the tag rules on form and converts failures into FieldErrors.
// It returns nil when form is valid.
func Struct(form any) FieldErrors {
	err := instance().Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"_": err.Error()}
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		out[fieldPath(fe)] = message(fe)
	}
	return out
}

// Merge folds extra into errs, allocating when needed.
func Merge(errs FieldErrors, extra FieldErrors) FieldErrors {
	if len(extra) == 0 {
		return errs
	}
	if errs == nil {
		errs = make(FieldErrors, len(extra))
	}
	for k, v := range extra {
		if _, exists := errs[k]; !exists {
			errs[k] = v
		}
	}
	return errs
}

// fieldPath is the namespace without the root struct name, e.g.
// "partners[1].name".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return "must be at least " + fe.Param() + " characters"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "must be at most " + fe.Param() + " characters"
		}
		return "must be at most " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "email":
		return "must be a valid email"
	case "uuid", "uuid4":
		return "must be a valid id"
	case "datetime":
		return "must be a date formatted " + fe.Param()
	case "decimal_gte0":
		return "must be a non-negative number"
	case "decimal_gt0":
		return "must be a positive number"
	default:
		return "is invalid"
	}
}
