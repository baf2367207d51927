package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(key string, start, end Millis) Item {
	return Item{SlotID: "S1", ItemKey: key, Start: start, End: end}
}

func TestResolveLeader(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		order   LeaderOrder
		wantKey string
		wantOK  bool
	}{
		{
			name:  "empty slot",
			items: nil,
		},
		{
			name: "nothing active",
			items: []Item{
				item("a", At(now+1000), At(now+2000)),
				item("b", Absent(), Absent()),
				item("c", At(now-2000), At(now-1000)),
			},
		},
		{
			name: "first active in fetch order",
			items: []Item{
				item("a", At(now-5000), At(now+5000)),
				item("b", At(now-8000), At(now+3000)),
			},
			order:   OrderFetch,
			wantKey: "a",
			wantOK:  true,
		},
		{
			name: "skips inactive items before the leader",
			items: []Item{
				item("future", At(now+1000), At(now+2000)),
				item("b", At(now-3000), Absent()),
			},
			wantKey: "b",
			wantOK:  true,
		},
		{
			name: "earliest start wins when sorted",
			items: []Item{
				item("a", At(now-5000), At(now+5000)),
				item("b", At(now-8000), At(now+3000)),
			},
			order:   OrderStartAsc,
			wantKey: "b",
			wantOK:  true,
		},
		{
			name: "item key breaks start ties",
			items: []Item{
				item("z", At(now-5000), At(now+5000)),
				item("m", At(now-5000), At(now+5000)),
			},
			order:   OrderStartAsc,
			wantKey: "m",
			wantOK:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := ResolveLeader(tt.items, now, tt.order)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestClassifySlotFirstActiveRuns(t *testing.T) {
	items := []Item{
		item("A", At(now-5000), At(now+5000)),
		item("B", At(now-3000), At(now+3000)),
	}

	got := ClassifySlot(items, now, OrderFetch)
	require.Len(t, got, 2)
	assert.Equal(t, StatusRunning, got[0].Status)
	assert.Equal(t, StatusScheduled, got[1].Status)

	// input is not mutated
	assert.Empty(t, items[0].Status)
}

func TestClassifySlotDuplicateKeysShareLeadership(t *testing.T) {
	items := []Item{
		item("A", At(now-5000), At(now+5000)),
		item("B", At(now-4000), At(now+5000)),
		item("A", At(now-1000), At(now+1000)),
		item("A", At(now+1000), At(now+2000)),
	}

	got := ClassifySlot(items, now, OrderFetch)
	assert.Equal(t, []Status{StatusRunning, StatusScheduled, StatusRunning, StatusScheduled},
		[]Status{got[0].Status, got[1].Status, got[2].Status, got[3].Status})
}

func TestClassifySlotAtMostOneLeaderKey(t *testing.T) {
	offsets := []int64{-9000, -7000, -5000, -3000, -1000, 0, 1000, 3000}
	var items []Item
	for i, start := range offsets {
		key := string(rune('a' + i))
		items = append(items, item(key, At(now+start), At(now+start+8000)))
	}

	for _, order := range []LeaderOrder{OrderFetch, OrderStartAsc} {
		got := ClassifySlot(items, now, order)
		running := map[string]bool{}
		for _, it := range got {
			if it.Status == StatusRunning {
				running[it.ItemKey] = true
			}
		}
		assert.LessOrEqualf(t, len(running), 1, "order %s", order)
	}
}

func TestClassifySlotPreservesOrderAndMetadata(t *testing.T) {
	items := []Item{
		{SlotID: "S1", SlotName: "Spot #1", ItemKey: "x", Label: "first", Condition: "c1", Start: At(now + 10), End: Absent()},
		{SlotID: "S1", SlotName: "Spot #1", ItemKey: "y", Label: "second", Created: At(1), Modified: At(2)},
	}

	got := ClassifySlot(items, now, OrderStartAsc)
	require.Len(t, got, 2)
	assert.Equal(t, Text("first"), got[0].Label)
	assert.Equal(t, Text("c1"), got[0].Condition)
	assert.Equal(t, Text("second"), got[1].Label)
	assert.Equal(t, At(1), got[1].Created)
	assert.Equal(t, At(2), got[1].Modified)
}

func TestParseLeaderOrder(t *testing.T) {
	order, err := ParseLeaderOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderFetch, order)

	order, err = ParseLeaderOrder(" START ")
	require.NoError(t, err)
	assert.Equal(t, OrderStartAsc, order)

	_, err = ParseLeaderOrder("priority")
	assert.Error(t, err)
}

func TestCountByStatus(t *testing.T) {
	counts := CountByStatus([]Item{{Status: StatusRunning}, {Status: StatusScheduled}, {Status: StatusScheduled}})
	assert.Equal(t, 1, counts[StatusRunning])
	assert.Equal(t, 2, counts[StatusScheduled])
	assert.Equal(t, 0, counts[StatusComplete])
	assert.Equal(t, 0, counts[StatusUnknown])
}
