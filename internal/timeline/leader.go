/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

import (
	"fmt"
	"sort"
	"strings"
)

// LeaderOrder selects the tiebreak among concurrently active items in a slot.
type LeaderOrder string

const (
	// OrderFetch picks the first active item in the order the item store
	// returned them.
	OrderFetch LeaderOrder = "fetch"

	// OrderStartAsc picks the earliest starting active item, then the
	// lowest item key.
	OrderStartAsc LeaderOrder = "start"
)

// ParseLeaderOrder maps a config value to a LeaderOrder. Empty means OrderFetch.
func ParseLeaderOrder(s string) (LeaderOrder, error) {
	switch LeaderOrder(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderFetch:
		return OrderFetch, nil
	case OrderStartAsc:
		return OrderStartAsc, nil
	default:
		return "", fmt.Errorf("unknown leader order %q", s)
	}
}

// ResolveLeader returns the item key of the slot leader: the first
// temporally active item under the given order. ok is false when nothing in
// the slot is active.
func ResolveLeader(items []Item, now int64, order LeaderOrder) (key string, ok bool) {
	var candidates []int
	for i := range items {
		if items[i].Active(now) {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	if order == OrderStartAsc {
		sort.SliceStable(candidates, func(a, b int) bool {
			ia, ib := items[candidates[a]], items[candidates[b]]
			if ia.Start.Value != ib.Start.Value {
				return ia.Start.Value < ib.Start.Value
			}
			return ia.ItemKey < ib.ItemKey
		})
	}

	return items[candidates[0]].ItemKey, true
}

// ClassifySlot returns a copy of items, all from one slot, with Status set.
// Input order is preserved. Every active item sharing the leader's key runs;
// other active items stay scheduled.
func ClassifySlot(items []Item, now int64, order LeaderOrder) []Item {
	out := make([]Item, len(items))
	copy(out, items)

	leaderKey, hasLeader := ResolveLeader(out, now, order)
	for i := range out {
		leader := hasLeader && out[i].Active(now) && out[i].ItemKey == leaderKey
		out[i].Status = Classify(out[i].Start, out[i].End, now, leader)
	}
	return out
}
