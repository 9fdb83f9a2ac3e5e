package jsontransform

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// ValueKind is the tag of a JsonValue variant.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

// ObjectMap is the insertion-ordered backing store for JsonValue's Object variant.
type ObjectMap = orderedmap.OrderedMap[string, JsonValue]

// JsonValue is a recursive tagged JSON value. Exactly one of the fields
// below is meaningful, selected by Kind.
type JsonValue struct {
	Kind  ValueKind
	Bool  bool
	Num   float64
	IsInt bool // integer-preserving hint
	Str   string
	Arr   []JsonValue
	Obj   *ObjectMap
}

// NewNull returns the JSON null value.
func NewNull() JsonValue { return JsonValue{Kind: KindNull} }

// NewBool wraps a Go bool.
func NewBool(b bool) JsonValue { return JsonValue{Kind: KindBool, Bool: b} }

// NewString wraps a Go string.
func NewString(s string) JsonValue { return JsonValue{Kind: KindString, Str: s} }

// NewInt wraps an integer, preserving the integer hint on output.
func NewInt(i int64) JsonValue { return JsonValue{Kind: KindNumber, Num: float64(i), IsInt: true} }

// NewFloat wraps a float64 without the integer hint.
func NewFloat(f float64) JsonValue { return JsonValue{Kind: KindNumber, Num: f, IsInt: false} }

// NewNumberAuto wraps a computed float64, inferring the integer hint when the
// value happens to be exact, so shortest round-trip formatting drops the
// trailing ".0" the way a hand-rolled encoder would (spec §9).
func NewNumberAuto(f float64) JsonValue {
	isInt := !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) && math.Abs(f) < 1e15
	return JsonValue{Kind: KindNumber, Num: f, IsInt: isInt}
}

// NewArray wraps a slice of values.
func NewArray(items []JsonValue) JsonValue {
	if items == nil {
		items = []JsonValue{}
	}
	return JsonValue{Kind: KindArray, Arr: items}
}

// NewObject returns an empty, insertion-ordered object.
func NewObject() JsonValue {
	return JsonValue{Kind: KindObject, Obj: orderedmap.New[string, JsonValue]()}
}

// IsNull reports whether v is the null value.
func (v JsonValue) IsNull() bool { return v.Kind == KindNull }

// IsMissing is an alias of IsNull; the path resolver never distinguishes
// "missing" from "null" once a value has been materialized (spec §4.A).
func (v JsonValue) IsMissing() bool { return v.Kind == KindNull }

// IsTruthy implements the boolean coercion rule from spec §4.B:
// null -> false, 0 / "" / empty array -> false, everything else -> true.
func (v JsonValue) IsTruthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Num != 0
	case KindString:
		return v.Str != ""
	case KindArray:
		return len(v.Arr) != 0
	default:
		return true
	}
}

// AsFloat64 returns the numeric value and whether v is a JSON number.
func (v JsonValue) AsFloat64() (float64, bool) {
	if v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Get looks up a field on an object value.
func (v JsonValue) Get(key string) (JsonValue, bool) {
	if v.Kind != KindObject || v.Obj == nil {
		return JsonValue{}, false
	}
	return v.Obj.Get(key)
}

// Equal reports structural equality, coercing numeric kinds per spec §3.
func (v JsonValue) Equal(other JsonValue) bool {
	if v.Kind == KindNumber && other.Kind == KindNumber {
		return v.Num == other.Num
	}
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == other.Bool
	case KindString:
		return v.Str == other.Str
	case KindArray:
		if len(v.Arr) != len(other.Arr) {
			return false
		}
		for i := range v.Arr {
			if !v.Arr[i].Equal(other.Arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if v.Obj.Len() != other.Obj.Len() {
			return false
		}
		for pair := v.Obj.Oldest(); pair != nil; pair = pair.Next() {
			ov, ok := other.Obj.Get(pair.Key)
			if !ok || !pair.Value.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// Stringify renders v the way the string templater and join aggregation do:
// booleans lower-case, numbers via shortest round-trip, null as empty string.
func Stringify(v JsonValue) string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case KindNumber:
		return formatNumber(v)
	case KindString:
		return v.Str
	case KindArray, KindObject:
		b, err := v.MarshalJSON()
		if err != nil {
			return ""
		}
		return string(b)
	}
	return ""
}

func formatNumber(v JsonValue) string {
	if v.IsInt && v.Num == math.Trunc(v.Num) && v.Num >= -9.2e18 && v.Num <= 9.2e18 {
		return strconv.FormatInt(int64(v.Num), 10)
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}

// ParseJSON decodes JSON text into a JsonValue tree, preserving object key
// insertion order and the integer/float distinction of each number.
func ParseJSON(data []byte) (JsonValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeValue(dec)
	if err != nil {
		return JsonValue{}, &Error{Code: ErrInvalidJSON, Message: "failed to parse JSON", Cause: err}
	}
	if dec.More() {
		return JsonValue{}, &Error{Code: ErrInvalidJSON, Message: "trailing data after JSON value"}
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (JsonValue, error) {
	tok, err := dec.Token()
	if err != nil {
		return JsonValue{}, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return JsonValue{}, &Error{Code: ErrInvalidJSON, Message: "unexpected delimiter"}
		}
	case string:
		return NewString(t), nil
	case json.Number:
		return numberFromJSONNumber(t)
	case bool:
		return NewBool(t), nil
	case nil:
		return NewNull(), nil
	default:
		return JsonValue{}, &Error{Code: ErrInvalidJSON, Message: "unrecognized token"}
	}
}

func decodeObject(dec *json.Decoder) (JsonValue, error) {
	om := orderedmap.New[string, JsonValue]()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return JsonValue{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return JsonValue{}, &Error{Code: ErrInvalidJSON, Message: "object key was not a string"}
		}
		val, err := decodeValue(dec)
		if err != nil {
			return JsonValue{}, err
		}
		om.Set(key, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return JsonValue{}, err
	}
	return JsonValue{Kind: KindObject, Obj: om}, nil
}

func decodeArray(dec *json.Decoder) (JsonValue, error) {
	arr := []JsonValue{}
	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return JsonValue{}, err
		}
		arr = append(arr, val)
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return JsonValue{}, err
	}
	return JsonValue{Kind: KindArray, Arr: arr}, nil
}

func numberFromJSONNumber(n json.Number) (JsonValue, error) {
	s := string(n)
	isInt := !strings.ContainsAny(s, ".eE")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return JsonValue{}, &Error{Code: ErrInvalidJSON, Message: "invalid number literal: " + s, Cause: err}
	}
	return JsonValue{Kind: KindNumber, Num: f, IsInt: isInt}, nil
}

// MarshalJSON implements json.Marshaler, producing compact output that
// preserves object key order and the integer-preserving hint.
func (v JsonValue) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v JsonValue) encode(buf *bytes.Buffer) error {
	switch v.Kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if v.Bool {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(formatNumber(v))
	case KindString:
		b, err := json.Marshal(v.Str)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindArray:
		buf.WriteByte('[')
		for i, item := range v.Arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		i := 0
		if v.Obj != nil {
			for pair := v.Obj.Oldest(); pair != nil; pair = pair.Next() {
				if i > 0 {
					buf.WriteByte(',')
				}
				kb, err := json.Marshal(pair.Key)
				if err != nil {
					return err
				}
				buf.Write(kb)
				buf.WriteByte(':')
				if err := pair.Value.encode(buf); err != nil {
					return err
				}
				i++
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}
