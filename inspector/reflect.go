// Package inspector exposes tagged struct fields as named scalar parameters.
// The configuration store uses it to offer get/set by name, and the CLI uses it
// to print the tunable field table.
package inspector

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// Kind is the scalar kind of a field.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	default:
		return "float"
	}
}

// Field describes one tunable scalar.
type Field struct {
	Name     string // yaml name
	Kind     Kind
	Min, Max float64
	HasMin   bool
	HasMax   bool
	Help     string

	index int
}

// ParseTag parses an inspect struct tag.
// Format: `inspect:"option:value[,option:value...]"` or `inspect:"skip"`.
// Examples:
//
//	`inspect:"min:0,max:500"`
//	`inspect:"min:1,max:64,help:rays per side"`
//	`inspect:"skip"`
func ParseTag(tag string) (skip bool, options map[string]string) {
	options = make(map[string]string)
	if tag == "" {
		return false, options
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "skip" {
			return true, options
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) == 2 {
			options[kv[0]] = kv[1]
		}
	}
	return false, options
}

// ExtractFields lists the scalar fields of a struct (or pointer to struct),
// keyed by their yaml names. Nested structs and non-scalar fields are ignored.
func ExtractFields(v any) []Field {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	t := rv.Type()
	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		kind, ok := scalarKind(sf.Type.Kind())
		if !ok {
			continue
		}

		skip, options := ParseTag(sf.Tag.Get("inspect"))
		if skip {
			continue
		}

		name := yamlName(sf)
		if name == "" {
			continue
		}

		f := Field{Name: name, Kind: kind, Help: options["help"], index: i}
		if s, ok := options["min"]; ok {
			if m, err := strconv.ParseFloat(s, 64); err == nil {
				f.Min, f.HasMin = m, true
			}
		}
		if s, ok := options["max"]; ok {
			if m, err := strconv.ParseFloat(s, 64); err == nil {
				f.Max, f.HasMax = m, true
			}
		}
		fields = append(fields, f)
	}
	return fields
}

// Lookup finds a field by yaml name.
func Lookup(v any, name string) (Field, bool) {
	for _, f := range ExtractFields(v) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Clamp limits value to the field's declared range. Int fields are rounded.
func (f Field) Clamp(value float64) float64 {
	if f.HasMin && value < f.Min {
		value = f.Min
	}
	if f.HasMax && value > f.Max {
		value = f.Max
	}
	if f.Kind == KindInt {
		value = math.Round(value)
	}
	if f.Kind == KindBool {
		if value != 0 {
			value = 1
		}
	}
	return value
}

// Get reads a field value as float64. Bools read as 0 or 1.
func Get(v any, f Field) float64 {
	fv := structValue(v).Field(f.index)
	switch f.Kind {
	case KindInt:
		return float64(fv.Int())
	case KindBool:
		if fv.Bool() {
			return 1
		}
		return 0
	default:
		return fv.Float()
	}
}

// Set writes a float64 into the field. v must be a pointer to a struct.
func Set(v any, f Field, value float64) {
	fv := structValue(v).Field(f.index)
	switch f.Kind {
	case KindInt:
		fv.SetInt(int64(math.Round(value)))
	case KindBool:
		fv.SetBool(value != 0)
	default:
		fv.SetFloat(value)
	}
}

// FormatValue formats a field value for display.
func FormatValue(value float64, kind Kind) string {
	switch kind {
	case KindInt:
		return strconv.FormatInt(int64(value), 10)
	case KindBool:
		return strconv.FormatBool(value != 0)
	default:
		return strconv.FormatFloat(value, 'g', -1, 64)
	}
}

// RangeString renders the declared range, e.g. "[0, 500]".
func (f Field) RangeString() string {
	lo, hi := "-inf", "+inf"
	if f.HasMin {
		lo = FormatValue(f.Min, f.Kind)
	}
	if f.HasMax {
		hi = FormatValue(f.Max, f.Kind)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

func structValue(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	return rv
}

func scalarKind(k reflect.Kind) (Kind, bool) {
	switch k {
	case reflect.Float32, reflect.Float64:
		return KindFloat, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return KindInt, true
	case reflect.Bool:
		return KindBool, true
	default:
		return 0, false
	}
}

func yamlName(sf reflect.StructField) string {
	tag := sf.Tag.Get("yaml")
	if tag == "-" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return strings.ToLower(sf.Name)
	}
	return name
}
