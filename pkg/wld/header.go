package wld

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

// ValueKind identifies what a header Value holds.
type ValueKind uint8

// Header value kinds.
const (
	KindNumber ValueKind = iota
	KindString
	KindList
)

// Value is one decoded header field. Numeric values keep their integer and
// floating point views in sync so either can be queried.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	list []Value
}

// IntValue returns a numeric value.
func IntValue(v int64) Value {
	return Value{kind: KindNumber, i: v, f: float64(v)}
}

// FloatValue returns a numeric value; the integer view truncates toward zero.
func FloatValue(v float64) Value {
	i := int64(0)
	if !math.IsNaN(v) && !math.IsInf(v, 0) {
		i = int64(v)
	}
	return Value{kind: KindNumber, i: i, f: v}
}

// StringValue returns a string value.
func StringValue(s string) Value {
	return Value{kind: KindString, s: s}
}

// ListValue returns a list value.
func ListValue(items []Value) Value {
	return Value{kind: KindList, list: items}
}

// Kind returns the value kind.
func (v Value) Kind() ValueKind { return v.kind }

// Int returns the integer view.
func (v Value) Int() int64 { return v.i }

// Float returns the floating point view.
func (v Value) Float() float64 { return v.f }

// Bool reports whether the integer view is non-zero.
func (v Value) Bool() bool { return v.i != 0 }

// Str returns the string payload.
func (v Value) Str() string { return v.s }

// Len returns the number of list elements.
func (v Value) Len() int { return len(v.list) }

// At returns list element i.
func (v Value) At(i int) (Value, error) {
	if i < 0 || i >= len(v.list) {
		return Value{}, fmt.Errorf("%w: index %d of %d", ErrMissingKey, i, len(v.list))
	}
	return v.list[i], nil
}

// Items returns the list elements.
func (v Value) Items() []Value { return v.list }

// String formats the value for display.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindList:
		return fmt.Sprint(v.list)
	}
	if v.f != float64(v.i) {
		return fmt.Sprint(v.f)
	}
	return fmt.Sprint(v.i)
}

// Header maps field names to decoded values for one world load.
type Header struct {
	values map[string]Value
	order  []string
}

func newHeader() *Header {
	return &Header{values: make(map[string]Value)}
}

func (h *Header) set(name string, v Value) {
	if _, ok := h.values[name]; !ok {
		h.order = append(h.order, name)
	}
	h.values[name] = v
}

// Has reports whether the field was decoded.
func (h *Header) Has(key string) bool {
	_, ok := h.values[key]
	return ok
}

// Get returns the value for key, or ErrMissingKey.
func (h *Header) Get(key string) (Value, error) {
	v, ok := h.values[key]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingKey, key)
	}
	return v, nil
}

// Int returns the integer view of key.
func (h *Header) Int(key string) (int64, error) {
	v, err := h.Get(key)
	return v.Int(), err
}

// Float returns the floating point view of key.
func (h *Header) Float(key string) (float64, error) {
	v, err := h.Get(key)
	return v.Float(), err
}

// Str returns the string value of key.
func (h *Header) Str(key string) (string, error) {
	v, err := h.Get(key)
	return v.Str(), err
}

// Is reports whether key is present and non-zero.
func (h *Header) Is(key string) bool {
	v, ok := h.values[key]
	return ok && v.Bool()
}

// Keys returns field names in decode order.
func (h *Header) Keys() []string {
	return append([]string(nil), h.order...)
}

// Len returns the number of decoded fields.
func (h *Header) Len() int {
	return len(h.order)
}

// TreeStyle returns the tree-top style for column x, or 0 for the default style.
func (h *Header) TreeStyle(x int) (int, error) {
	xs, err := h.Get("treeX")
	if err != nil {
		return 0, err
	}
	tops, err := h.Get("treeTops")
	if err != nil {
		return 0, err
	}
	i := 0
	for ; i < xs.Len(); i++ {
		if int64(x) <= xs.list[i].Int() {
			break
		}
	}
	style, err := tops.At(i)
	if err != nil {
		return 0, err
	}
	if s := style.Int(); s != 0 {
		return int(s) + 5, nil
	}
	return 0, nil
}

// GUID returns the world's unique id (version 181+).
func (h *Header) GUID() (uuid.UUID, error) {
	v, err := h.Get("guid")
	if err != nil {
		return uuid.Nil, err
	}
	raw := make([]byte, 0, v.Len())
	for _, b := range v.list {
		raw = append(raw, byte(b.Int()))
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: guid: %w", ErrCorrupt, err)
	}
	return id, nil
}

// decodeHeader reads every catalog field present in version from c.
func decodeHeader(c *Cursor, catalog *Catalog, version int) (*Header, error) {
	h := newHeader()
	for _, f := range catalog.fields {
		if !f.PresentIn(version) {
			continue
		}
		v, err := readField(c, h, f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		h.set(f.Name, v)
	}
	return h, nil
}

func fieldLength(h *Header, f FieldDescriptor) (int, error) {
	if f.LengthRef == "" {
		return f.Length, nil
	}
	n, err := h.Int(f.LengthRef)
	if err != nil {
		return 0, fmt.Errorf("%w: length reference %s unresolved", ErrSchema, f.LengthRef)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative length %d from %s", ErrCorrupt, n, f.LengthRef)
	}
	return int(n), nil
}

func readField(c *Cursor, h *Header, f FieldDescriptor) (Value, error) {
	switch f.Type {
	case FieldBool, FieldU8:
		v, err := c.U8()
		return IntValue(int64(v)), err
	case FieldI16:
		v, err := c.I16()
		return IntValue(int64(v)), err
	case FieldI32:
		v, err := c.I32()
		return IntValue(int64(v)), err
	case FieldI64:
		v, err := c.I64()
		return IntValue(v), err
	case FieldF32:
		v, err := c.F32()
		return FloatValue(float64(v)), err
	case FieldF64:
		v, err := c.F64()
		return FloatValue(v), err
	case FieldString:
		v, err := c.VarString()
		return StringValue(v), err
	}

	n, err := fieldLength(h, f)
	if err != nil {
		return Value{}, err
	}
	// Each element takes at least one byte, which bounds the allocation.
	if int64(n) > c.Remaining() {
		return Value{}, fmt.Errorf("%w: %d elements with %d bytes left", ErrOutOfBounds, n, c.Remaining())
	}
	items := make([]Value, 0, n)
	for i := 0; i < n; i++ {
		var item Value
		switch f.Type {
		case FieldBytes:
			v, e := c.U8()
			item, err = IntValue(int64(v)), e
		case FieldInt32s:
			v, e := c.I32()
			item, err = IntValue(int64(v)), e
		case FieldStrings:
			v, e := c.VarString()
			item, err = StringValue(v), e
		default:
			return Value{}, fmt.Errorf("%w: unknown field type %s", ErrSchema, f.Type)
		}
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return ListValue(items), nil
}
