package descriptor

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindMissing Kind = "missing"
	KindType    Kind = "type"
	KindPattern Kind = "pattern"
	KindUnknown Kind = "unknown"
	KindRange   Kind = "range"
)

// ValidationError describes one descriptor field that failed validation.
type ValidationError struct {
	Field  string
	Kind   Kind
	Detail string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindMissing:
		return fmt.Sprintf("missing required field %q (%s)", e.Field, e.Detail)
	case KindUnknown:
		return fmt.Sprintf("unknown field %q", e.Field)
	default:
		return fmt.Sprintf("field %q: %s", e.Field, e.Detail)
	}
}

var (
	errWrongType = errors.New("wrong type")
	errNoMatch   = errors.New("does not match")
)

// Shape is the expected form of a descriptor value.
type Shape interface {
	Describe() string
	check(value any) error
}

type primitive struct {
	name string
	ok   func(any) bool
}

func (p primitive) Describe() string { return p.name }

func (p primitive) check(value any) error {
	if !p.ok(value) {
		return errWrongType
	}
	return nil
}

// String matches a string value.
var String Shape = primitive{name: "string", ok: func(v any) bool {
	_, ok := v.(string)
	return ok
}}

// Integer matches an integer value as produced by either decoder.
var Integer Shape = primitive{name: "integer", ok: func(v any) bool {
	_, ok := asInt64(v)
	return ok
}}

type optional struct{ inner Shape }

// Optional matches nil or inner.
func Optional(inner Shape) Shape { return optional{inner: inner} }

func (o optional) Describe() string { return "optional " + o.inner.Describe() }

func (o optional) check(value any) error {
	if value == nil {
		return nil
	}
	return o.inner.check(value)
}

type listOf struct{ item Shape }

// ListOf matches a list whose every element matches item.
func ListOf(item Shape) Shape { return listOf{item: item} }

func (l listOf) Describe() string { return "list of " + l.item.Describe() }

func (l listOf) check(value any) error {
	items, ok := value.([]any)
	if !ok {
		return errWrongType
	}
	for _, item := range items {
		if err := l.item.check(item); err != nil {
			return err
		}
	}
	return nil
}

type pattern struct{ re *regexp.Regexp }

// Pattern matches a string fully matching expr.
func Pattern(expr string) Shape { return pattern{re: regexp.MustCompile(expr)} }

func (p pattern) Describe() string { return "string matching " + p.re.String() }

func (p pattern) check(value any) error {
	s, ok := value.(string)
	if !ok {
		return errWrongType
	}
	if !p.re.MatchString(s) {
		return errNoMatch
	}
	return nil
}

type anyOf struct{ shapes []Shape }

// AnyOf matches a value matching at least one of shapes.
func AnyOf(shapes ...Shape) Shape { return anyOf{shapes: shapes} }

func (a anyOf) Describe() string {
	names := make([]string, len(a.shapes))
	for i, s := range a.shapes {
		names[i] = s.Describe()
	}
	return strings.Join(names, " or ")
}

func (a anyOf) check(value any) error {
	result := errWrongType
	for _, shape := range a.shapes {
		err := shape.check(value)
		if err == nil {
			return nil
		}
		if errors.Is(err, errNoMatch) {
			result = errNoMatch
		}
	}
	return result
}

// Field is one entry of a Schema.
type Field struct {
	Name     string
	Shape    Shape
	Required bool
}

// Schema lists the fields a descriptor may contain.
type Schema []Field

// Validate checks raw against the schema and returns every problem found, joined.
func (s Schema) Validate(raw map[string]any) error {
	var errs []error
	known := make(map[string]struct{}, len(s))

	for _, field := range s {
		known[field.Name] = struct{}{}
		value, present := raw[field.Name]
		if !present || value == nil {
			if field.Required {
				errs = append(errs, &ValidationError{Field: field.Name, Kind: KindMissing, Detail: field.Shape.Describe()})
			}
			continue
		}
		switch err := field.Shape.check(value); {
		case err == nil:
		case errors.Is(err, errNoMatch):
			errs = append(errs, &ValidationError{
				Field:  field.Name,
				Kind:   KindPattern,
				Detail: fmt.Sprintf("value %v must be a %s", value, field.Shape.Describe()),
			})
		default:
			errs = append(errs, &ValidationError{
				Field:  field.Name,
				Kind:   KindType,
				Detail: fmt.Sprintf("value %v (%T) must be a %s", value, value, field.Shape.Describe()),
			})
		}
	}

	var unknown []string
	for key := range raw {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		errs = append(errs, &ValidationError{Field: key, Kind: KindUnknown})
	}

	return errors.Join(errs...)
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case uint64:
		if n > 1<<63-1 {
			return 0, false
		}
		return int64(n), true
	default:
		return 0, false
	}
}
