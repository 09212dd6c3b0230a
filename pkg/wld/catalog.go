package wld

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"go.uber.org/multierr"

	"github.com/Faultbox/terrafirma/pkg/wld/schema"
)

// Supported world versions of the bundled catalog.
const (
	DefaultMinVersion = 88
	DefaultMaxVersion = 315
)

// FieldType is the wire type of a header field.
type FieldType uint8

// Header field types.
const (
	FieldBool FieldType = iota
	FieldU8
	FieldI16
	FieldI32
	FieldI64
	FieldF32
	FieldF64
	FieldString
	FieldBytes
	FieldInt32s
	FieldStrings
)

var fieldTypeNames = [...]string{
	FieldBool:    "bool",
	FieldU8:      "u8",
	FieldI16:     "i16",
	FieldI32:     "i32",
	FieldI64:     "i64",
	FieldF32:     "f32",
	FieldF64:     "f64",
	FieldString:  "string",
	FieldBytes:   "array<u8>",
	FieldInt32s:  "array<i32>",
	FieldStrings: "array<string>",
}

// String returns the type name.
func (t FieldType) String() string {
	if int(t) < len(fieldTypeNames) {
		return fieldTypeNames[t]
	}
	return fmt.Sprintf("FieldType(%d)", t)
}

// IsArray reports whether the type holds a list of values.
func (t FieldType) IsArray() bool {
	return t == FieldBytes || t == FieldInt32s || t == FieldStrings
}

// isInteger reports whether the type decodes to an integer usable as a length.
func (t FieldType) isInteger() bool {
	switch t {
	case FieldBool, FieldU8, FieldI16, FieldI32, FieldI64:
		return true
	}
	return false
}

// FieldDescriptor describes one header field.
type FieldDescriptor struct {
	Name       string
	Type       FieldType
	Length     int    // element count for arrays without LengthRef
	LengthRef  string // earlier field holding the element count
	MinVersion int
	MaxVersion int
}

// PresentIn reports whether the field is stored in files of the given version.
func (f FieldDescriptor) PresentIn(version int) bool {
	return version >= f.MinVersion && version <= f.MaxVersion
}

// Catalog is the ordered list of header fields. It is immutable once built.
type Catalog struct {
	fields []FieldDescriptor
	index  map[string]int
}

// NewCatalog validates fields and builds a catalog.
// A LengthRef must name an earlier integer field present in every version the array is.
func NewCatalog(fields []FieldDescriptor) (*Catalog, error) {
	c := &Catalog{
		fields: append([]FieldDescriptor(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}

	var errs error
	for i, f := range c.fields {
		if f.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("field %d: empty name", i))
			continue
		}
		if _, dup := c.index[f.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("field %q: duplicate name", f.Name))
		}
		if f.MinVersion > f.MaxVersion {
			errs = multierr.Append(errs, fmt.Errorf("field %q: min version %d above max %d", f.Name, f.MinVersion, f.MaxVersion))
		}
		if f.LengthRef != "" {
			if !f.Type.IsArray() {
				errs = multierr.Append(errs, fmt.Errorf("field %q: length reference on scalar type %s", f.Name, f.Type))
			}
			j, ok := c.index[f.LengthRef]
			switch {
			case !ok:
				errs = multierr.Append(errs, fmt.Errorf("field %q: length reference %q is not an earlier field", f.Name, f.LengthRef))
			case !c.fields[j].Type.isInteger():
				errs = multierr.Append(errs, fmt.Errorf("field %q: length reference %q has type %s", f.Name, f.LengthRef, c.fields[j].Type))
			case c.fields[j].MinVersion > f.MinVersion || c.fields[j].MaxVersion < f.MaxVersion:
				errs = multierr.Append(errs, fmt.Errorf("field %q: length reference %q missing in part of its version range", f.Name, f.LengthRef))
			}
		}
		c.index[f.Name] = i
	}
	if errs != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, errs)
	}
	return c, nil
}

// Fields returns a copy of the descriptors in decode order.
func (c *Catalog) Fields() []FieldDescriptor {
	return append([]FieldDescriptor(nil), c.fields...)
}

// Field looks up a descriptor by name.
func (c *Catalog) Field(name string) (FieldDescriptor, bool) {
	i, ok := c.index[name]
	if !ok {
		return FieldDescriptor{}, false
	}
	return c.fields[i], true
}

// Len returns the number of fields.
func (c *Catalog) Len() int {
	return len(c.fields)
}

type catalogEntry struct {
	Name   string `json:"name"`
	Type   string `json:"type"`
	Num    *int   `json:"num"`
	Relnum string `json:"relnum"`
	Min    int    `json:"min"`
	Max    int    `json:"max"`
}

// ParseCatalog builds a catalog from its JSON form. A max version of 0 means
// maxVersion. The document is validated against the bundled JSON Schema first.
func ParseCatalog(data []byte, maxVersion int) (*Catalog, error) {
	if err := validateCatalogJSON(data); err != nil {
		return nil, err
	}

	var entries []catalogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchema, err)
	}

	fields := make([]FieldDescriptor, 0, len(entries))
	for _, e := range entries {
		array := e.Num != nil || e.Relnum != ""
		f := FieldDescriptor{
			Name:       e.Name,
			LengthRef:  e.Relnum,
			MinVersion: e.Min,
			MaxVersion: e.Max,
		}
		if e.Num != nil {
			f.Length = *e.Num
		}
		if f.MaxVersion == 0 {
			f.MaxVersion = maxVersion
		}

		switch e.Type {
		case "", "b":
			f.Type = FieldBool
		case "u8":
			f.Type = FieldU8
			if array {
				f.Type = FieldBytes
			}
		case "i16":
			f.Type = FieldI16
		case "i32":
			f.Type = FieldI32
			if array {
				f.Type = FieldInt32s
			}
		case "i64":
			f.Type = FieldI64
		case "f32":
			f.Type = FieldF32
		case "f64":
			f.Type = FieldF64
		case "s":
			f.Type = FieldString
			if array {
				f.Type = FieldStrings
			}
		default:
			return nil, fmt.Errorf("%w: invalid header type %q on %s", ErrSchema, e.Type, e.Name)
		}
		if array && !f.Type.IsArray() {
			return nil, fmt.Errorf("%w: type %q on %s cannot be an array", ErrSchema, e.Type, e.Name)
		}
		fields = append(fields, f)
	}
	return NewCatalog(fields)
}

var (
	catalogSchemaOnce sync.Once
	catalogSchema     *jsonschema.Schema
	catalogSchemaErr  error
)

func validateCatalogJSON(data []byte) error {
	catalogSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("header.schema.json", bytes.NewReader(schema.HeaderSchemaJSON)); err != nil {
			catalogSchemaErr = err
			return
		}
		catalogSchema, catalogSchemaErr = compiler.Compile("header.schema.json")
	})
	if catalogSchemaErr != nil {
		return fmt.Errorf("%w: compiling catalog schema: %w", ErrSchema, catalogSchemaErr)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if err := catalogSchema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	return nil
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *Catalog
	defaultCatalogErr  error
)

// DefaultCatalog returns the bundled header catalog, parsed once per process.
func DefaultCatalog() (*Catalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = ParseCatalog(schema.HeaderJSON, DefaultMaxVersion)
	})
	return defaultCatalog, defaultCatalogErr
}
