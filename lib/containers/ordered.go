// SPDX-License-Identifier: MIT

package containers

import (
	"golang.org/x/exp/constraints"
)

// Ordered is satisfied by any type with a three-way comparison against
// its own kind: negative if the receiver sorts before arg, zero if
// equal, positive if after.
type Ordered[T any] interface {
	Cmp(T) int
}

// NativeOrdered adapts any builtin ordered type (the constraints.Ordered
// set) into an Ordered[T] for use as a B+ tree or sorted-map key.
type NativeOrdered[T constraints.Ordered] struct {
	Val T
}

func (a NativeOrdered[T]) Cmp(b NativeOrdered[T]) int {
	switch {
	case a.Val < b.Val:
		return -1
	case a.Val > b.Val:
		return 1
	default:
		return 0
	}
}

var _ Ordered[NativeOrdered[int]] = NativeOrdered[int]{}

// CmpUint is a three-way comparison for any unsigned integer type,
// usable directly (without the NativeOrdered wrapper) where the
// concrete key type already needs its own Cmp method.
func CmpUint[T constraints.Unsigned](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// CmpBytes is a three-way comparison for anything that orders on a
// raw byte encoding. (CompoundKey compares its string encoding
// directly and does not call it.)
func CmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
