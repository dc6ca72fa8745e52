// SPDX-License-Identifier: MIT

package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aetherall/neograph-sub003/internal/ids"
)

func TestEncodeValueOrdersLikeCmp(t *testing.T) {
	values := []ids.Value{
		ids.Null(),
		ids.IntValue(-100),
		ids.IntValue(-1),
		ids.IntValue(0),
		ids.IntValue(1),
		ids.IntValue(100),
	}
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			a := CompoundKey(encodeValue(nil, values[i]))
			b := CompoundKey(encodeValue(nil, values[j]))
			require.True(t, a.Cmp(b) < 0, "encode(%v) should sort before encode(%v)", values[i], values[j])
		}
	}
}

func TestEncodeFloat64Order(t *testing.T) {
	values := []float64{-1e10, -1.5, -0.001, 0, 0.001, 1.5, 1e10}
	for i := 0; i < len(values); i++ {
		for j := i + 1; j < len(values); j++ {
			a := CompoundKey(encodeFloat64(nil, values[i]))
			b := CompoundKey(encodeFloat64(nil, values[j]))
			require.True(t, a.Cmp(b) < 0)
		}
	}
}

func TestEncodeSortableStringEscaping(t *testing.T) {
	a := CompoundKey(encodeSortableString(nil, "abc"))
	b := CompoundKey(encodeSortableString(nil, "abd"))
	require.True(t, a.Cmp(b) < 0)

	// a string that is a strict prefix of another sorts first thanks to
	// the NUL terminator.
	c := CompoundKey(encodeSortableString(nil, "ab"))
	require.True(t, c.Cmp(a) < 0)
}

func TestNegateReversesOrder(t *testing.T) {
	a := encodeValue(nil, ids.IntValue(1))
	b := encodeValue(nil, ids.IntValue(2))
	negate(a, 0)
	negate(b, 0)
	require.True(t, CompoundKey(a).Cmp(CompoundKey(b)) > 0, "negated encoding of 1 should sort after negated encoding of 2")
}

func TestEncodeKeyNodeIdDisambiguates(t *testing.T) {
	fields := []FieldValue{{Value: ids.IntValue(5)}}
	k1 := EncodeKey(fields, ids.NodeId(1))
	k2 := EncodeKey(fields, ids.NodeId(2))
	require.NotEqual(t, k1, k2)
	require.True(t, k1.Cmp(k2) < 0)
	prefix := EncodePrefix(fields)
	require.True(t, k1.HasPrefix(prefix))
	require.True(t, k2.HasPrefix(prefix))
}
