package csvbind

import (
	"encoding"
	"fmt"
	"time"
	"unsafe"

	"github.com/cockroachdb/apd/v3"
)

// Signed is the set of signed integer slot types.
type Signed interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64
}

// Unsigned is the set of unsigned integer slot types.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Floating is the set of floating point slot types.
type Floating interface {
	~float32 | ~float64
}

// Slot binds one field of record type T to a CSV column. Build slots with the
// typed constructors (String, Int, Time, ...) and attach an annotation with
// With.
type Slot[T any] struct {
	Name   string
	Kind   Kind
	Column *Column

	bits int
	// get returns the field value in the converter's representation; false
	// means the field holds no value (a nil pointer).
	get func(*T) (any, bool)
	set func(*T, any) error
}

// With returns a copy of s annotated with c.
func (s Slot[T]) With(c Column) Slot[T] {
	s.Column = &c
	return s
}

func sizeBits[N any]() int {
	var zero N
	return int(unsafe.Sizeof(zero)) * 8
}

// String binds a string field.
func String[T any](name string, ref func(*T) *string) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindString,
		get:  func(r *T) (any, bool) { return *ref(r), true },
		set: func(r *T, v any) error {
			*ref(r) = v.(string)
			return nil
		},
	}
}

// StringPtr binds a *string field; nil is written as an absent field.
func StringPtr[T any](name string, ref func(*T) **string) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindString,
		get:  ptrGet(ref, func(v string) any { return v }),
		set: func(r *T, v any) error {
			s := v.(string)
			*ref(r) = &s
			return nil
		},
	}
}

// Int binds a signed integer field.
func Int[T any, N Signed](name string, ref func(*T) *N) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindInt,
		bits: sizeBits[N](),
		get:  func(r *T) (any, bool) { return int64(*ref(r)), true },
		set: func(r *T, v any) error {
			*ref(r) = N(v.(int64))
			return nil
		},
	}
}

// IntPtr binds a pointer to a signed integer.
func IntPtr[T any, N Signed](name string, ref func(*T) **N) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindInt,
		bits: sizeBits[N](),
		get:  ptrGet(ref, func(v N) any { return int64(v) }),
		set: func(r *T, v any) error {
			n := N(v.(int64))
			*ref(r) = &n
			return nil
		},
	}
}

// Uint binds an unsigned integer field.
func Uint[T any, N Unsigned](name string, ref func(*T) *N) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindUint,
		bits: sizeBits[N](),
		get:  func(r *T) (any, bool) { return uint64(*ref(r)), true },
		set: func(r *T, v any) error {
			*ref(r) = N(v.(uint64))
			return nil
		},
	}
}

// UintPtr binds a pointer to an unsigned integer.
func UintPtr[T any, N Unsigned](name string, ref func(*T) **N) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindUint,
		bits: sizeBits[N](),
		get:  ptrGet(ref, func(v N) any { return uint64(v) }),
		set: func(r *T, v any) error {
			n := N(v.(uint64))
			*ref(r) = &n
			return nil
		},
	}
}

// Float binds a floating point field.
func Float[T any, N Floating](name string, ref func(*T) *N) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindFloat,
		bits: sizeBits[N](),
		get:  func(r *T) (any, bool) { return float64(*ref(r)), true },
		set: func(r *T, v any) error {
			*ref(r) = N(v.(float64))
			return nil
		},
	}
}

// FloatPtr binds a pointer to a floating point number.
func FloatPtr[T any, N Floating](name string, ref func(*T) **N) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindFloat,
		bits: sizeBits[N](),
		get:  ptrGet(ref, func(v N) any { return float64(v) }),
		set: func(r *T, v any) error {
			n := N(v.(float64))
			*ref(r) = &n
			return nil
		},
	}
}

// Decimal binds an arbitrary precision decimal.
func Decimal[T any](name string, ref func(*T) *apd.Decimal) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindDecimal,
		get:  func(r *T) (any, bool) { return ref(r), true },
		set: func(r *T, v any) error {
			ref(r).Set(v.(*apd.Decimal))
			return nil
		},
	}
}

// DecimalPtr binds a *apd.Decimal field; nil is written as an absent field.
func DecimalPtr[T any](name string, ref func(*T) **apd.Decimal) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindDecimal,
		get: func(r *T) (any, bool) {
			d := *ref(r)
			return d, d != nil
		},
		set: func(r *T, v any) error {
			*ref(r) = v.(*apd.Decimal)
			return nil
		},
	}
}

// Bool binds a boolean field.
func Bool[T any](name string, ref func(*T) *bool) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindBool,
		get:  func(r *T) (any, bool) { return *ref(r), true },
		set: func(r *T, v any) error {
			*ref(r) = v.(bool)
			return nil
		},
	}
}

// BoolPtr binds a *bool field.
func BoolPtr[T any](name string, ref func(*T) **bool) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindBool,
		get:  ptrGet(ref, func(v bool) any { return v }),
		set: func(r *T, v any) error {
			b := v.(bool)
			*ref(r) = &b
			return nil
		},
	}
}

// Time binds a time.Time field. Column.Format is the layout used to write
// it and, with ExactFormatParse, to read it.
func Time[T any](name string, ref func(*T) *time.Time) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindTime,
		get:  func(r *T) (any, bool) { return *ref(r), true },
		set: func(r *T, v any) error {
			*ref(r) = v.(time.Time)
			return nil
		},
	}
}

// TimePtr binds a *time.Time field.
func TimePtr[T any](name string, ref func(*T) **time.Time) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindTime,
		get:  ptrGet(ref, func(v time.Time) any { return v }),
		set: func(r *T, v any) error {
			t := v.(time.Time)
			*ref(r) = &t
			return nil
		},
	}
}

// Duration binds a time.Duration field, written in time.Duration.String form.
func Duration[T any](name string, ref func(*T) *time.Duration) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindDuration,
		get:  func(r *T) (any, bool) { return *ref(r), true },
		set: func(r *T, v any) error {
			*ref(r) = v.(time.Duration)
			return nil
		},
	}
}

// Text binds any field whose pointer implements encoding.TextMarshaler and
// encoding.TextUnmarshaler, such as uuid.UUID or net/netip.Addr.
func Text[T any, V any, P interface {
	*V
	encoding.TextMarshaler
	encoding.TextUnmarshaler
}](name string, ref func(*T) *V) Slot[T] {
	return Slot[T]{
		Name: name,
		Kind: KindText,
		get:  func(r *T) (any, bool) { return P(ref(r)), true },
		set: func(r *T, v any) error {
			return P(ref(r)).UnmarshalText([]byte(v.(string)))
		},
	}
}

func ptrGet[T, V any](ref func(*T) **V, conv func(V) any) func(*T) (any, bool) {
	return func(r *T) (any, bool) {
		p := *ref(r)
		if p == nil {
			return nil, false
		}
		return conv(*p), true
	}
}

func (s *Slot[T]) valid() error {
	if s.Name == "" && (s.Column == nil || s.Column.Name == "") {
		return fmt.Errorf("%w: slot has no name", ErrInvalidConfig)
	}
	if s.get == nil || s.set == nil {
		return fmt.Errorf("%w: slot %q was not built with a constructor", ErrInvalidConfig, s.Name)
	}
	return nil
}
