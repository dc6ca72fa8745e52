// SPDX-License-Identifier: MIT

// Package ids defines the small integer and opaque identifier types
// shared by every subsystem: schema, node store, index manager,
// rollup cache, change tracker, and query engine all key their maps
// off of these rather than raw strings or uint64s, so a typo in a
// call site is a compile error instead of a silent miss.
package ids

import "fmt"

// NodeId is an opaque, monotonically allocated identifier, never
// reused within a process lifetime.
type NodeId uint64

func (id NodeId) String() string { return fmt.Sprintf("#%d", uint64(id)) }

// Cmp makes NodeId usable as a containers.Ordered key (e.g. the
// terminal component of a CompoundKey).
func (id NodeId) Cmp(other NodeId) int {
	switch {
	case id < other:
		return -1
	case id > other:
		return 1
	default:
		return 0
	}
}

// TypeId, PropertyId, and EdgeId are assigned sequentially during
// schema registration, in declaration order, starting at 0.
type TypeId int32

type PropertyId int32

type EdgeId int32

// IndexId identifies one Index definition within its owning Type.
type IndexId int32

// RollupId identifies one Rollup definition within its owning Type.
type RollupId int32

const InvalidTypeId TypeId = -1

func (id TypeId) Valid() bool { return id >= 0 }

// Kind is the tagged-union discriminant for property values.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindInt
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a tagged union over the four primitive property kinds
// plus null. It is small enough (kind tag + two scalar slots) to pass
// by value everywhere, avoiding the allocation an `any` would cost on
// every property read.
type Value struct {
	kind Kind
	str  string
	num  float64 // also holds Int (as an exact float64) and Bool (0/1)
}

func Null() Value                { return Value{kind: KindNull} }
func StringValue(s string) Value { return Value{kind: KindString, str: s} }
func IntValue(i int64) Value     { return Value{kind: KindInt, num: float64(i)} }
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }
func BoolValue(b bool) Value {
	if b {
		return Value{kind: KindBool, num: 1}
	}
	return Value{kind: KindBool, num: 0}
}

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return fmt.Sprintf("%d", int64(v.num))
	case KindNumber:
		return fmt.Sprintf("%v", v.num)
	case KindBool:
		return fmt.Sprintf("%v", v.num != 0)
	default:
		return ""
	}
}

func (v Value) Int() int64     { return int64(v.num) }
func (v Value) Number() float64 { return v.num }
func (v Value) Bool() bool     { return v.num != 0 }

// Cmp orders values the way the index manager and the comparison
// filters need: null sorts before any non-null value (per spec
// §9 "null < any non-null"); values of differing kind otherwise order
// by kind tag, which only matters for mixed-kind scans, which the
// schema's type-safety invariant prevents from ever occurring within
// a single indexed field.
func (a Value) Cmp(b Value) int {
	if a.kind == KindNull && b.kind == KindNull {
		return 0
	}
	if a.kind == KindNull {
		return -1
	}
	if b.kind == KindNull {
		return 1
	}
	if a.kind != b.kind {
		if a.kind < b.kind {
			return -1
		}
		return 1
	}
	switch a.kind {
	case KindString:
		switch {
		case a.str < b.str:
			return -1
		case a.str > b.str:
			return 1
		default:
			return 0
		}
	default: // KindInt, KindNumber, KindBool all compare numerically
		switch {
		case a.num < b.num:
			return -1
		case a.num > b.num:
			return 1
		default:
			return 0
		}
	}
}

func (a Value) Equal(b Value) bool { return a.Cmp(b) == 0 }
