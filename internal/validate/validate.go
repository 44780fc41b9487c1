// Package validate checks request form fields against a declarative schema
// before any handler logic runs.
//
// THE CONTRACT:
// A handler declares, per route, which fields it expects and how each must
// look:
//
//	var registerSchema = validate.NewSchema(
//	    validate.Field{Name: "user-id", DisplayName: "User ID", Rule: "required,alphanum,min=4,max=32"},
//	    validate.Field{Name: "password", DisplayName: "Password", Rule: "required,min=8,max=72"},
//	)
//
// Apply runs the schema against the submitted values and returns either the
// validated values keyed by field name, or a list of user-facing messages
// ("User ID is required", ...). Handler logic only ever sees validated
// input — the same guarantee the schema gives in any framework with
// declarative request validation.
//
// WHY go-playground/validator?
// The Rule strings are validator tag expressions, so every rule the library
// knows (alphanum, email, min, max, oneof, ...) is available without this
// package growing its own rule engine. We use Var() — the single-value
// form — because form fields arrive as loose strings, not as a struct.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Field describes one expected request parameter.
type Field struct {
	Name        string // form field name, e.g. "user-id"
	DisplayName string // shown in error messages, e.g. "User ID"
	Rule        string // validator tag expression, e.g. "required,min=8"
}

// Schema is an ordered set of Fields for one route.
type Schema struct {
	fields []Field
	v      *validator.Validate
}

// NewSchema builds a Schema. Schemas are cheap and immutable — declare them
// as package-level vars next to the handler that uses them.
func NewSchema(fields ...Field) *Schema {
	return &Schema{
		fields: fields,
		v:      validator.New(),
	}
}

// Fields returns the declared fields, in declaration order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// Apply validates the submitted values.
//
// get is a lookup for raw submitted values — pass r.PostFormValue for a
// form post. On success, the returned map holds exactly the declared
// fields, trimmed of surrounding whitespace. On failure, values is nil and
// problems holds one user-facing message per failed field.
func (s *Schema) Apply(get func(name string) string) (values map[string]string, problems []string) {
	values = make(map[string]string, len(s.fields))

	for _, f := range s.fields {
		raw := strings.TrimSpace(get(f.Name))

		if err := s.v.Var(raw, f.Rule); err != nil {
			if ve, ok := err.(validator.ValidationErrors); ok {
				for _, fe := range ve {
					problems = append(problems, fieldError(f.DisplayName, fe))
				}
				continue
			}
			problems = append(problems, fmt.Sprintf("%s is invalid", f.DisplayName))
			continue
		}

		values[f.Name] = raw
	}

	if len(problems) > 0 {
		return nil, problems
	}
	return values, nil
}

// fieldError converts a single ValidationError into a human-readable
// message built around the field's display name.
func fieldError(display string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return display + " is required"
	case "alphanum":
		return display + " may only contain letters and digits"
	case "email":
		return display + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", display, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", display, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", display, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation (%s)", display, fe.Tag())
	}
}
