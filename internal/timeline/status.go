/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package timeline

// Status is the derived lifecycle state of a scheduled item.
type Status string

// Wire values match what the dashboard already renders; Scheduled is spelled
// "Schedule".
const (
	StatusScheduled Status = "Schedule"
	StatusRunning   Status = "Running"
	StatusComplete  Status = "Complete"
	StatusUnknown   Status = "Unknown"
)

// Statuses lists every state Classify can return.
var Statuses = []Status{StatusScheduled, StatusRunning, StatusComplete, StatusUnknown}

// Classify assigns a lifecycle state from an item's window, the evaluation
// instant and whether the item leads its slot. Both bounds are strict: an item
// starting exactly at now is not yet running and an item ending exactly at now
// is complete.
func Classify(start, end Millis, now int64, leader bool) Status {
	upper := end.UpperBound()

	if !start.Valid {
		if !end.Valid || now < upper {
			return StatusScheduled
		}
		return StatusComplete
	}

	s := start.Value
	switch {
	case s < now && now < upper:
		if leader {
			return StatusRunning
		}
		return StatusScheduled
	case now <= s && s < upper:
		return StatusScheduled
	case s < upper && upper <= now:
		return StatusComplete
	default:
		return StatusUnknown
	}
}

// Active reports whether the window [start, end) strictly contains now.
// Items without a start are never active.
func Active(start, end Millis, now int64) bool {
	return start.Valid && start.Value < now && now < end.UpperBound()
}
