// FILE: lixenwraith/flatconf/schema.go
package flatconf

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"net"
	"net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SchemaType is the declared type of a schema entry
type SchemaType int

const (
	TypeString SchemaType = iota
	TypeBool
	TypeNumber
)

func (t SchemaType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	case TypeNumber:
		return "number"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// ParseSchemaType maps a schema type name to its SchemaType.
// Names are case-sensitive: "string", "bool", "number".
func ParseSchemaType(name string) (SchemaType, error) {
	switch name {
	case "string":
		return TypeString, nil
	case "bool":
		return TypeBool, nil
	case "number":
		return TypeNumber, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSchemaType, name)
	}
}

// Schema maps fully qualified dotted keys to their declared type
type Schema map[string]SchemaType

// Lookup returns the declared type for key
func (s Schema) Lookup(key string) (SchemaType, bool) {
	t, ok := s[key]
	return t, ok
}

// Paths returns the declared keys in sorted order
func (s Schema) Paths() []string {
	return slices.Sorted(maps.Keys(s))
}

// Merge copies other into s; entries of other win on collision
func (s Schema) Merge(other Schema) {
	maps.Copy(s, other)
}

// LoadSchema reads a complete schema from r. Any line naming an unknown type
// fails the whole load; no partial schema is returned.
func LoadSchema(r io.Reader) (Schema, error) {
	return loadSchema(r, "schema", zerolog.Nop(), DefaultMaxLineSize)
}

// LoadSchemaFile reads a complete schema from the file at path
func LoadSchemaFile(path string) (Schema, error) {
	f, err := openSource(path, nil)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadSchema(f, path, zerolog.Nop(), DefaultMaxLineSize)
}

func loadSchema(r io.Reader, source string, logger zerolog.Logger, maxLine int) (Schema, error) {
	schema := make(Schema)
	err := scanLines(r, source, maxLine, func(lineNo int, line string) error {
		key, typeName, ok := ParseSchemaLine(line)
		if !ok {
			return nil
		}
		t, err := ParseSchemaType(typeName)
		if err != nil {
			return &ParseError{Source: source, Line: lineNo, Key: key, Err: err}
		}
		schema[key] = t
		logger.Debug().Str("source", source).Int("line", lineNo).Str("key", key).Stringer("type", t).Msg("schema entry declared")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schema, nil
}

// Coerce converts raw into a typed Value according to t.
// Strings are kept verbatim; booleans accept exactly "true" and "false";
// numbers accept decimal floating point syntax including sign, exponent and
// the inf/nan spellings. Magnitudes outside float64 range become ±Inf.
func Coerce(raw string, t SchemaType) (Value, error) {
	switch t {
	case TypeString:
		return StringValue(raw), nil
	case TypeBool:
		switch raw {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return Value{}, ErrInvalidBoolean
	case TypeNumber:
		f, err := parseDecimal(raw)
		if err != nil {
			return Value{}, ErrInvalidNumber
		}
		return NumberValue(f), nil
	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownSchemaType, t)
	}
}

// parseDecimal is strconv.ParseFloat restricted to base-10 spellings
func parseDecimal(s string) (float64, error) {
	unsigned := strings.TrimLeft(s, "+-")
	if len(unsigned) > 1 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return 0, strconv.ErrSyntax
	}
	if strings.ContainsRune(s, '_') {
		return 0, strconv.ErrSyntax
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, err
	}
	return f, nil
}

// SchemaFromStruct derives a schema from the fields of a struct.
// Paths come from `conf` tags (field name when untagged, "-" skips), nested
// structs extend the path, and the prefix is prepended to every path.
// String fields declare string, bool fields bool, integer and float fields
// number. Fields of any other kind are left undeclared.
func SchemaFromStruct(prefix string, v any) (Schema, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, fmt.Errorf("SchemaFromStruct requires a non-nil struct pointer or value")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("SchemaFromStruct requires a struct or struct pointer, got %T", v)
	}

	schema := make(Schema)
	var errs []string
	collectFields(rv.Type(), strings.TrimSuffix(prefix, "."), schema, &errs)
	if len(errs) > 0 {
		return nil, fmt.Errorf("failed to derive schema for %d field(s): %s", len(errs), strings.Join(errs, "; "))
	}
	return schema, nil
}

// textLeafTypes are decoded from their string form by Scan hooks, so they
// are declared as strings rather than walked or treated as numbers.
var textLeafTypes = map[reflect.Type]bool{
	reflect.TypeOf(time.Duration(0)): true,
	reflect.TypeOf(time.Time{}):      true,
	reflect.TypeOf(url.URL{}):        true,
	reflect.TypeOf(net.IPNet{}):      true,
	reflect.TypeOf(net.IP{}):         true,
}

func collectFields(t reflect.Type, prefix string, schema Schema, errs *[]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		tag := field.Tag.Get(DefaultTagName)
		if tag == "-" {
			continue
		}
		key := field.Name
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			key = name
		}
		if !isValidKeySegment(key) {
			*errs = append(*errs, fmt.Sprintf("field %s: invalid path segment %q", field.Name, key))
			continue
		}
		path := joinPath(prefix, key)

		ft := field.Type
		if ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if textLeafTypes[ft] {
			schema[path] = TypeString
			continue
		}
		switch ft.Kind() {
		case reflect.Struct:
			collectFields(ft, path, schema, errs)
		case reflect.String:
			schema[path] = TypeString
		case reflect.Bool:
			schema[path] = TypeBool
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
			reflect.Float32, reflect.Float64:
			schema[path] = TypeNumber
		}
	}
}
