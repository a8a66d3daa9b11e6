// Package jsonvalue provides a small tagged-variant representation of an
// arbitrary JSON document. Provider payloads routinely carry fields whose
// shape varies by vendor (a "content" that is a string on one host and an
// array of typed parts on another); decoding them into a Value lets callers
// switch exhaustively on [Kind] instead of probing interface{} with type
// assertions.
package jsonvalue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	// Null is the JSON null literal. It is also the zero Value.
	Null Kind = iota
	String
	Number
	Bool
	Array
	Object
)

// String returns the lower-case JSON name of the kind.
func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case String:
		return "string"
	case Number:
		return "number"
	case Bool:
		return "bool"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Value is an immutable JSON value. Only the field matching Kind is meaningful.
type Value struct {
	kind    Kind
	str     string
	num     json.Number
	boolean bool
	items   []Value
	fields  map[string]Value
}

// Constructors. They are mainly used by tests and by codecs that need to
// build a Value without going through the decoder.

func NewString(s string) Value      { return Value{kind: String, str: s} }
func NewNumber(n json.Number) Value { return Value{kind: Number, num: n} }
func NewBool(b bool) Value          { return Value{kind: Bool, boolean: b} }
func NewArray(items ...Value) Value { return Value{kind: Array, items: items} }

// NewObject builds an object Value. The map is copied.
func NewObject(fields map[string]Value) Value {
	copied := make(map[string]Value, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return Value{kind: Object, fields: copied}
}

// Parse decodes data into a Value. Numbers keep their textual form.
func Parse(data []byte) (Value, error) {
	var value Value
	if err := json.Unmarshal(data, &value); err != nil {
		return Value{}, err
	}
	return value, nil
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is JSON null (or was never set).
func (v Value) IsNull() bool { return v.kind == Null }

// Str returns the string payload and whether v is a string.
func (v Value) Str() (string, bool) {
	return v.str, v.kind == String
}

// Num returns the number payload and whether v is a number.
func (v Value) Num() (json.Number, bool) {
	return v.num, v.kind == Number
}

// Boolean returns the bool payload and whether v is a bool.
func (v Value) Boolean() (bool, bool) {
	return v.boolean, v.kind == Bool
}

// Items returns the array elements, or nil when v is not an array.
func (v Value) Items() []Value {
	if v.kind != Array {
		return nil
	}
	return v.items
}

// Len returns the number of array items or object fields.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.items)
	case Object:
		return len(v.fields)
	default:
		return 0
	}
}

// Get returns the named object field. ok is false when v is not an object
// or the key is absent.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	field, ok := v.fields[key]
	return field, ok
}

// GetString is shorthand for Get followed by Str.
func (v Value) GetString(key string) (string, bool) {
	field, ok := v.Get(key)
	if !ok {
		return "", false
	}
	return field.Str()
}

// Keys returns the object keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.fields))
	for key := range v.fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	decoded, err := decodeValue(decoder)
	if err != nil {
		return err
	}
	if decoder.More() {
		return fmt.Errorf("jsonvalue: trailing data after top-level value")
	}
	*v = decoded
	return nil
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(v.str)
	case Number:
		return []byte(v.num.String()), nil
	case Bool:
		return []byte(strconv.FormatBool(v.boolean)), nil
	case Array:
		items := v.items
		if items == nil {
			items = []Value{}
		}
		return json.Marshal(items)
	case Object:
		fields := v.fields
		if fields == nil {
			fields = map[string]Value{}
		}
		return json.Marshal(fields)
	default:
		return nil, fmt.Errorf("jsonvalue: unknown kind %d", v.kind)
	}
}

func decodeValue(decoder *json.Decoder) (Value, error) {
	token, err := decoder.Token()
	if err != nil {
		return Value{}, err
	}

	switch typed := token.(type) {
	case nil:
		return Value{}, nil
	case string:
		return NewString(typed), nil
	case json.Number:
		return NewNumber(typed), nil
	case bool:
		return NewBool(typed), nil
	case json.Delim:
		switch typed {
		case '[':
			items := []Value{}
			for decoder.More() {
				item, err := decodeValue(decoder)
				if err != nil {
					return Value{}, err
				}
				items = append(items, item)
			}
			if _, err := decoder.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: Array, items: items}, nil
		case '{':
			fields := map[string]Value{}
			for decoder.More() {
				keyToken, err := decoder.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyToken.(string)
				if !ok {
					return Value{}, fmt.Errorf("jsonvalue: object key is %T, not string", keyToken)
				}
				field, err := decodeValue(decoder)
				if err != nil {
					return Value{}, err
				}
				fields[key] = field
			}
			if _, err := decoder.Token(); err != nil {
				return Value{}, err
			}
			return Value{kind: Object, fields: fields}, nil
		}
	}

	return Value{}, fmt.Errorf("jsonvalue: unexpected token %v", token)
}
