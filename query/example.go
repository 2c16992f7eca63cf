package query

import (
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/uptrace/bun"
)

// StringMatch selects how string fields of a probe entity are matched.
type StringMatch int

const (
	// MatchExact compares string fields with equality.
	MatchExact StringMatch = iota
	// MatchContains matches string fields as substrings.
	MatchContains
	// MatchPrefix matches string fields as prefixes.
	MatchPrefix
	// MatchSuffix matches string fields as suffixes.
	MatchSuffix
)

type exampleOptions struct {
	match      StringMatch
	ignoreCase bool
	ignored    map[string]struct{}
}

// ExampleOption configures ByExample matching behavior.
type ExampleOption func(*exampleOptions)

// WithStringMatch sets how string fields are matched. Default is MatchExact.
func WithStringMatch(m StringMatch) ExampleOption {
	return func(o *exampleOptions) { o.match = m }
}

// WithIgnoreCase makes string matching case-insensitive.
func WithIgnoreCase() ExampleOption {
	return func(o *exampleOptions) { o.ignoreCase = true }
}

// WithIgnoredColumns excludes the given columns from example matching.
func WithIgnoredColumns(columns ...string) ExampleOption {
	return func(o *exampleOptions) {
		for _, c := range columns {
			o.ignored[c] = struct{}{}
		}
	}
}

// ByExample builds a Spec from the non-zero fields of a probe entity.
//
// Columns are resolved from bun struct tags (falling back to snake_case of
// the field name); embedded structs are flattened; relation fields, nil
// pointers, slices, and maps are skipped. String fields are matched according
// to the configured StringMatch, everything else with equality.
func ByExample[E any](probe *E, opts ...ExampleOption) Spec {
	o := exampleOptions{ignored: make(map[string]struct{})}
	for _, opt := range opts {
		opt(&o)
	}

	var specs []Spec
	if probe != nil {
		specs = collectConditions(reflect.ValueOf(probe).Elem(), &o)
	}

	return All(specs...)
}

func collectConditions(v reflect.Value, o *exampleOptions) []Spec {
	var specs []Spec

	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)

		// Embedded structs are flattened before the exported check: an
		// embedded field of an unexported type still promotes exported
		// fields, and those must participate in matching.
		if field.Anonymous && fv.Kind() == reflect.Struct && !isTime(fv) {
			specs = append(specs, collectConditions(fv, o)...)
			continue
		}
		if !field.IsExported() {
			continue
		}

		column, ok := columnFor(field)
		if !ok {
			continue
		}
		if _, skip := o.ignored[column]; skip {
			continue
		}

		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		if fv.IsZero() {
			continue
		}

		switch fv.Kind() {
		case reflect.Slice, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
			continue
		case reflect.Struct:
			if !isTime(fv) {
				continue
			}
			specs = append(specs, Eq(column, fv.Interface()))
		case reflect.String:
			specs = append(specs, stringCondition(column, fv.String(), o))
		default:
			specs = append(specs, Eq(column, fv.Interface()))
		}
	}

	return specs
}

// columnFor resolves the database column for a struct field from its bun tag.
// The second return is false for skipped and relation fields.
func columnFor(field reflect.StructField) (string, bool) {
	tag := field.Tag.Get("bun")
	if tag == "-" || strings.HasPrefix(tag, "rel:") || strings.HasPrefix(tag, "m2m:") {
		return "", false
	}

	column, _, _ := strings.Cut(tag, ",")
	if column == "" {
		column = toSnake(field.Name)
	}
	return column, true
}

func stringCondition(column, value string, o *exampleOptions) Spec {
	switch o.match {
	case MatchContains:
		return like(column, "%"+EscapeLike(value)+"%", o.ignoreCase)
	case MatchPrefix:
		return like(column, EscapeLike(value)+"%", o.ignoreCase)
	case MatchSuffix:
		return like(column, "%"+EscapeLike(value), o.ignoreCase)
	default:
		if o.ignoreCase {
			return SpecFunc(func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("LOWER(?) = LOWER(?)", bun.Ident(column), value)
			})
		}
		return Eq(column, value)
	}
}

var timeType = reflect.TypeOf(time.Time{})

// isTime checks the type instead of asserting on Interface(), which would
// panic for values reached through unexported embedded fields.
func isTime(v reflect.Value) bool {
	return v.Type() == timeType
}

// toSnake converts a CamelCase field name to snake_case.
// Initialism runs stay together: UserID becomes user_id.
func toSnake(name string) string {
	runes := []rune(name)
	var b strings.Builder
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			b.WriteRune(r)
			continue
		}
		prevLower := i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]))
		nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
		if i > 0 && (prevLower || nextLower) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
