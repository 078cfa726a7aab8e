// Package dtype describes element types of hierarchical typed data: scalar
// kinds with a byte width, and compound (record) types with named fields.
package dtype

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrMalformed reports a dtype specification that cannot be normalized.
var ErrMalformed = errors.New("malformed dtype")

// Kind classifies an element type.
type Kind uint8

const (
	// Invalid is the zero Kind.
	Invalid Kind = iota
	// Int is a signed integer.
	Int
	// Uint is an unsigned integer.
	Uint
	// Float is an IEEE floating point number.
	Float
	// Bool is a boolean.
	Bool
	// Bytes is a fixed-capacity byte string.
	Bytes
	// Unicode is a fixed-capacity unicode string (4 bytes per character).
	Unicode
	// VarString is a variable-length string.
	VarString
	// Opaque is raw untyped data of a fixed width.
	Opaque
	// Compound is a record of named fields.
	Compound
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Uint:
		return "uint"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Bytes:
		return "bytes"
	case Unicode:
		return "unicode"
	case VarString:
		return "str"
	case Opaque:
		return "opaque"
	case Compound:
		return "compound"
	default:
		return "invalid"
	}
}

// Field is one named member of a compound descriptor.
type Field struct {
	Name string
	Type Descriptor
	// Offset is the byte offset of the field within the record, or -1 when
	// the record does not declare explicit offsets.
	Offset int
}

// Descriptor is the normalized form of an element type.
type Descriptor struct {
	Kind Kind
	// Size is the byte width of one element. Unicode descriptors store
	// 4 bytes per declared character. Compound descriptors store the total
	// record size. Variable-length strings have size zero.
	Size   int
	Fields []Field
}

// Equal reports exact descriptor equality, including compound fields.
func (d Descriptor) Equal(other Descriptor) bool {
	if d.Kind != other.Kind || d.Size != other.Size || len(d.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range d.Fields {
		g := other.Fields[i]
		if f.Name != g.Name || f.Offset != g.Offset || !f.Type.Equal(g.Type) {
			return false
		}
	}
	return true
}

// String renders the descriptor in the spelling Parse accepts.
func (d Descriptor) String() string {
	switch d.Kind {
	case Int:
		return fmt.Sprintf("int%d", d.Size*8)
	case Uint:
		return fmt.Sprintf("uint%d", d.Size*8)
	case Float:
		return fmt.Sprintf("float%d", d.Size*8)
	case Bool:
		return "bool"
	case Bytes:
		return fmt.Sprintf("S%d", d.Size)
	case Unicode:
		return fmt.Sprintf("U%d", d.Size/4)
	case VarString:
		return "str"
	case Opaque:
		return fmt.Sprintf("V%d", d.Size)
	case Compound:
		parts := make([]string, 0, len(d.Fields))
		for _, f := range d.Fields {
			parts = append(parts, f.Name+":"+f.Type.String())
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		return "invalid"
	}
}

// IsString reports whether the descriptor is a string kind, fixed or variable.
func (d Descriptor) IsString() bool {
	return d.Kind == Bytes || d.Kind == Unicode || d.Kind == VarString
}

var dtypeCodePattern = regexp.MustCompile(`^[<>=|]?([iufSUVb])(\d*)$`)

var dtypeNames = map[string]Descriptor{
	"int8":    {Kind: Int, Size: 1},
	"int16":   {Kind: Int, Size: 2},
	"int32":   {Kind: Int, Size: 4},
	"int64":   {Kind: Int, Size: 8},
	"uint8":   {Kind: Uint, Size: 1},
	"uint16":  {Kind: Uint, Size: 2},
	"uint32":  {Kind: Uint, Size: 4},
	"uint64":  {Kind: Uint, Size: 8},
	"float16": {Kind: Float, Size: 2},
	"float32": {Kind: Float, Size: 4},
	"float64": {Kind: Float, Size: 8},
	"bool":    {Kind: Bool, Size: 1},
	"str":     {Kind: VarString},
	"string":  {Kind: VarString},
	"object":  {Kind: VarString},
	"O":       {Kind: VarString},
}

// Parse normalizes a dtype specification. Accepted forms:
//
//   - a string: a named type ("int32", "float64", "bool", "str") or a
//     numpy-style code with optional byte-order prefix ("<f8", "u2",
//     "S128", "U16")
//   - a field list: []any of {"name": ..., "dtype": ...} maps
//   - a record object: {"formats": [{"name", "format", "offset"?}...],
//     "itemsize"?}
//
// Failures wrap ErrMalformed.
func Parse(spec any) (Descriptor, error) {
	switch v := spec.(type) {
	case string:
		return parseString(v)
	case Descriptor:
		return v, nil
	case []any:
		return parseFieldList(v)
	case map[string]any:
		return parseRecord(v)
	default:
		return Descriptor{}, fmt.Errorf("%w: unsupported specification %T", ErrMalformed, spec)
	}
}

func parseString(s string) (Descriptor, error) {
	if d, ok := dtypeNames[s]; ok {
		return d, nil
	}
	m := dtypeCodePattern.FindStringSubmatch(s)
	if m == nil {
		return Descriptor{}, fmt.Errorf("%w: unknown dtype %q", ErrMalformed, s)
	}
	code, digits := m[1], m[2]

	size := 0
	if digits != "" {
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			return Descriptor{}, fmt.Errorf("%w: bad dtype width in %q", ErrMalformed, s)
		}
		size = n
	}

	switch code {
	case "i":
		return sized(Int, size, 8, s)
	case "u":
		return sized(Uint, size, 8, s)
	case "f":
		return sized(Float, size, 8, s)
	case "b":
		return sized(Bool, size, 1, s)
	case "S":
		return Descriptor{Kind: Bytes, Size: size}, nil
	case "U":
		return Descriptor{Kind: Unicode, Size: size * 4}, nil
	case "V":
		return Descriptor{Kind: Opaque, Size: size}, nil
	}
	return Descriptor{}, fmt.Errorf("%w: unknown dtype %q", ErrMalformed, s)
}

func sized(kind Kind, size, fallback int, spec string) (Descriptor, error) {
	if size == 0 {
		size = fallback
	}
	switch size {
	case 1, 2, 4, 8:
		return Descriptor{Kind: kind, Size: size}, nil
	}
	return Descriptor{}, fmt.Errorf("%w: bad dtype width in %q", ErrMalformed, spec)
}

// parseFieldList handles the [{"name": ..., "dtype": ...}, ...] form.
func parseFieldList(entries []any) (Descriptor, error) {
	fields := make([]Field, 0, len(entries))
	total := 0
	for i, entry := range entries {
		m, ok := entry.(map[string]any)
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: compound field %d is not a mapping", ErrMalformed, i)
		}
		name, ok := m["name"].(string)
		if !ok || name == "" {
			return Descriptor{}, fmt.Errorf("%w: compound field %d has no name", ErrMalformed, i)
		}
		spec, ok := m["dtype"]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: compound field %q has no dtype", ErrMalformed, name)
		}
		ft, err := Parse(spec)
		if err != nil {
			return Descriptor{}, fmt.Errorf("compound field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Type: ft, Offset: -1})
		total += ft.Size
	}
	if err := checkFieldNames(fields); err != nil {
		return Descriptor{}, err
	}
	return Descriptor{Kind: Compound, Size: total, Fields: fields}, nil
}

// parseRecord handles the {"formats": [...], "itemsize"?} form.
func parseRecord(m map[string]any) (Descriptor, error) {
	rawFormats, ok := m["formats"].([]any)
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: record object has no formats list", ErrMalformed)
	}
	fields := make([]Field, 0, len(rawFormats))
	withOffset := 0
	total := 0
	for i, raw := range rawFormats {
		fm, ok := raw.(map[string]any)
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: record format %d is not a mapping", ErrMalformed, i)
		}
		name, ok := fm["name"].(string)
		if !ok || name == "" {
			return Descriptor{}, fmt.Errorf("%w: record format %d has no name", ErrMalformed, i)
		}
		spec, ok := fm["format"]
		if !ok {
			return Descriptor{}, fmt.Errorf("%w: record format %q has no format", ErrMalformed, name)
		}
		ft, err := Parse(spec)
		if err != nil {
			return Descriptor{}, fmt.Errorf("record format %q: %w", name, err)
		}
		field := Field{Name: name, Type: ft, Offset: -1}
		if rawOffset, ok := fm["offset"]; ok {
			offset, ok := asInt(rawOffset)
			if !ok || offset < 0 {
				return Descriptor{}, fmt.Errorf("%w: record format %q has bad offset", ErrMalformed, name)
			}
			field.Offset = offset
			withOffset++
		}
		fields = append(fields, field)
		total += ft.Size
	}
	if withOffset != 0 && withOffset != len(fields) {
		return Descriptor{}, fmt.Errorf("%w: record declares offsets for %d of %d fields", ErrMalformed, withOffset, len(fields))
	}
	if err := checkFieldNames(fields); err != nil {
		return Descriptor{}, err
	}
	if rawSize, ok := m["itemsize"]; ok {
		size, ok := asInt(rawSize)
		if !ok || size <= 0 {
			return Descriptor{}, fmt.Errorf("%w: record has bad itemsize", ErrMalformed)
		}
		total = size
	}
	return Descriptor{Kind: Compound, Size: total, Fields: fields}, nil
}

func checkFieldNames(fields []Field) error {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("%w: duplicate compound field %q", ErrMalformed, f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return nil
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// Compatible reports whether an actual element type satisfies an expected
// one. The relation is deliberately asymmetric: fixed string kinds are
// cross-compatible as long as the actual capacity does not exceed the
// expected capacity, counting 4 bytes per unicode character. Everything else
// requires the same kind and byte width.
func Compatible(actual, expected Descriptor) bool {
	if actual.Equal(expected) {
		return true
	}
	if actual.Kind == expected.Kind && actual.Size == expected.Size {
		return true
	}

	switch {
	case actual.Kind == Bytes && expected.Kind == Unicode:
		return actual.Size <= expected.Size/4
	case actual.Kind == Unicode && expected.Kind == Bytes:
		return actual.Size/4 <= expected.Size
	case actual.Kind == Bytes && expected.Kind == Bytes,
		actual.Kind == Unicode && expected.Kind == Unicode:
		return actual.Size <= expected.Size
	}
	return false
}
