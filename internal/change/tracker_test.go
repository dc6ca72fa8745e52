// SPDX-License-Identifier: MIT

package change

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aetherall/neograph-sub003/internal/ids"
)

func TestEmitOnlyReachesSubscribersOfThatType(t *testing.T) {
	tr := NewTracker()
	var gotA, gotB []Event
	tr.Subscribe(ids.TypeId(1), func(e Event) { gotA = append(gotA, e) })
	tr.Subscribe(ids.TypeId(2), func(e Event) { gotB = append(gotB, e) })

	tr.Emit(Event{Kind: Insert, Type: ids.TypeId(1), Node: ids.NodeId(10)})
	require.Len(t, gotA, 1)
	require.Empty(t, gotB)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	tr := NewTracker()
	var count int
	id := tr.Subscribe(ids.TypeId(1), func(Event) { count++ })
	tr.Emit(Event{Type: ids.TypeId(1)})
	tr.Unsubscribe(ids.TypeId(1), id)
	tr.Emit(Event{Type: ids.TypeId(1)})
	require.Equal(t, 1, count)
}

func TestMultipleSubscribersDeliveredInRegistrationOrder(t *testing.T) {
	tr := NewTracker()
	var order []int
	tr.Subscribe(ids.TypeId(1), func(Event) { order = append(order, 1) })
	tr.Subscribe(ids.TypeId(1), func(Event) { order = append(order, 2) })
	tr.Subscribe(ids.TypeId(1), func(Event) { order = append(order, 3) })
	tr.Emit(Event{Type: ids.TypeId(1)})
	require.Equal(t, []int{1, 2, 3}, order)
}
