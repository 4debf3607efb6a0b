// Package tensor provides the array view and memory types the copy engine operates on.
package tensor

import (
	"fmt"
	"strings"

	"github.com/x448/float16"
)

// DType is a constraint for Go types that back an element kind.
// float16.Float16 is covered by ~uint16.
type DType interface {
	~bool | ~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// DataType represents runtime type information for array elements.
type DataType int

// Supported data types. The set is closed: the cast table is indexed by these values.
const (
	Bool DataType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
	Float16
	Float32
	Float64
	Complex64
	Complex128

	// NumKinds is the number of supported data types.
	NumKinds int = iota
)

// AllDataTypes lists every supported data type in table order.
var AllDataTypes = []DataType{
	Bool, Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64,
	Float16, Float32, Float64, Complex64, Complex128,
}

var dataTypeInfo = [...]struct {
	name    string
	typestr string
	size    int
}{
	Bool:       {"bool", "b1", 1},
	Int8:       {"int8", "i1", 1},
	Uint8:      {"uint8", "u1", 1},
	Int16:      {"int16", "i2", 2},
	Uint16:     {"uint16", "u2", 2},
	Int32:      {"int32", "i4", 4},
	Uint32:     {"uint32", "u4", 4},
	Int64:      {"int64", "i8", 8},
	Uint64:     {"uint64", "u8", 8},
	Float16:    {"float16", "f2", 2},
	Float32:    {"float32", "f4", 4},
	Float64:    {"float64", "f8", 8},
	Complex64:  {"complex64", "c8", 8},
	Complex128: {"complex128", "c16", 16},
}

// Valid reports whether dt is one of the supported data types.
func (dt DataType) Valid() bool {
	return dt >= 0 && int(dt) < NumKinds
}

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	if !dt.Valid() {
		panic(fmt.Sprintf("unknown data type %d", int(dt)))
	}
	return dataTypeInfo[dt].size
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	if !dt.Valid() {
		return "unknown"
	}
	return dataTypeInfo[dt].name
}

// Typestr returns the array-interface type string (e.g. "f4", "c16").
func (dt DataType) Typestr() string {
	if !dt.Valid() {
		return "??"
	}
	return dataTypeInfo[dt].typestr
}

// MarshalText implements encoding.TextMarshaler.
func (dt DataType) MarshalText() ([]byte, error) {
	return []byte(dt.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (dt *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*dt = v
	return nil
}

// IsBool reports whether dt is Bool.
func (dt DataType) IsBool() bool { return dt == Bool }

// IsInteger reports whether dt is a signed or unsigned integer type.
func (dt DataType) IsInteger() bool { return dt >= Int8 && dt <= Uint64 }

// IsUnsigned reports whether dt is an unsigned integer type.
func (dt DataType) IsUnsigned() bool {
	return dt == Uint8 || dt == Uint16 || dt == Uint32 || dt == Uint64
}

// IsFloat reports whether dt is a real floating point type.
func (dt DataType) IsFloat() bool { return dt >= Float16 && dt <= Float64 }

// IsComplex reports whether dt is a complex type.
func (dt DataType) IsComplex() bool { return dt == Complex64 || dt == Complex128 }

// ParseDataType accepts either a type name ("float32") or a typestr ("f4").
func ParseDataType(s string) (DataType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, dt := range AllDataTypes {
		if s == dt.String() || s == dt.Typestr() {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("unknown data type %q", s)
}

// InferDataType returns the DataType backing the Go type T.
func InferDataType[T DType]() DataType {
	var dummy T
	switch any(dummy).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	case complex128:
		return Complex128
	default:
		panic(fmt.Sprintf("unsupported type %T", dummy))
	}
}
