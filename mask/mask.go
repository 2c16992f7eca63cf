// Package mask redacts sensitive struct fields before they are logged.
//
// Fields tagged `mask:"true"` have their values replaced with a placeholder.
// The main consumer is cfgloader, which logs the loaded configuration with
// credentials masked.
package mask

import (
	"reflect"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const (
	tagName = "mask"

	// Redacted replaces the value of every masked field.
	Redacted = "[redacted]"
)

// Fields flattens a struct into an ordered map of dotted field paths to
// values, with masked fields redacted. Field names follow the yaml tag, then
// the json tag, then the Go field name; fields tagged "-" are omitted.
// Returns nil for nil input.
func Fields(v any) *orderedmap.OrderedMap[string, any] {
	if v == nil {
		return nil
	}

	om := orderedmap.New[string, any]()
	walk(reflect.ValueOf(v), "", om)
	return om
}

func walk(val reflect.Value, prefix string, om *orderedmap.OrderedMap[string, any]) {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			om.Set(prefix, nil)
			return
		}
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		om.Set(prefix, val.Interface())
		return
	}

	typ := val.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}

		name, ok := fieldName(field)
		if !ok {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}

		fv := val.Field(i)
		switch {
		case masked(field):
			om.Set(name, redact(fv))
		case expandable(fv):
			walk(fv, name, om)
		default:
			om.Set(name, fv.Interface())
		}
	}
}

// redact replaces a field value with the placeholder. Nil and zero values
// stay as they are, so empty credentials remain visibly empty.
func redact(val reflect.Value) any {
	if val.Kind() == reflect.Pointer {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}

	if val.IsZero() {
		return val.Interface()
	}

	return Redacted
}

func masked(field reflect.StructField) bool {
	return strings.EqualFold(field.Tag.Get(tagName), "true")
}

func expandable(val reflect.Value) bool {
	kind := val.Kind()
	if kind == reflect.Pointer {
		if val.IsNil() {
			return false
		}
		kind = val.Elem().Kind()
	}
	return kind == reflect.Struct
}

// fieldName resolves the logging name of a field: yaml tag, json tag, then
// the Go field name. The second return is false for fields tagged "-".
func fieldName(field reflect.StructField) (string, bool) {
	for _, tag := range []string{"yaml", "json"} {
		value, ok := field.Tag.Lookup(tag)
		if !ok {
			continue
		}
		if value == "-" {
			return "", false
		}
		name, _, _ := strings.Cut(value, ",")
		if name != "" {
			return name, true
		}
	}
	return field.Name, true
}
