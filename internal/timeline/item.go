/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package timeline classifies scheduled signage items by time and decides
// which item in a slot is currently on screen.
package timeline

import "encoding/json"

// Text is free-form item metadata that encodes as null when empty, matching
// what dashboards get for a missing label or condition.
type Text string

// MarshalJSON encodes the empty string as null.
func (t Text) MarshalJSON() ([]byte, error) {
	if t == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(t))
}

// Item is one piece of content scheduled against a slot. Everything except
// the window, the slot and the item key is carried through untouched.
type Item struct {
	SlotID   string `json:"seq_id"`
	SlotName string `json:"seq_name"`
	ItemKey  string `json:"libraryItemId"`

	Start Millis `json:"startMillis"`
	End   Millis `json:"endMillis"`

	Label     Text   `json:"label"`
	Condition Text   `json:"condition"`
	Created   Millis `json:"createdMillis"`
	Modified  Millis `json:"modifiedMillis"`
	Duration  Millis `json:"durationMillis"`
	BlobID    string `json:"blobId,omitempty"`

	// Stacks location, needed to update or delete the item.
	StackIndex       int    `json:"stackIndex"`
	ItemIndex        int    `json:"itemIndex"`
	ProgrammaticID   string `json:"idProgrammatic,omitempty"`
	ProgrammaticType string `json:"typeProgrammatic,omitempty"`

	Status Status `json:"status"`
}

// Active reports whether the item's window strictly contains now.
func (it Item) Active(now int64) bool {
	return Active(it.Start, it.End, now)
}

// CountByStatus tallies items per status.
func CountByStatus(items []Item) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		counts[st] = 0
	}
	for _, it := range items {
		counts[it.Status]++
	}
	return counts
}
