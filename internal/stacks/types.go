/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package stacks

import (
	"github.com/friendsincode/signboard/internal/timeline"
)

// Stacks returns every value in an item's data map as a string, but older
// items carry raw numbers for the millisecond fields. timeline.Millis
// decodes both.

type sequenceResponse struct {
	ID     string         `json:"id"`
	Stacks []stackPayload `json:"stacks"`
}

type stackPayload struct {
	Items []itemPayload `json:"items"`
}

type itemPayload struct {
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	Data      itemData          `json:"data"`
	Resources []resourcePayload `json:"resources"`
}

type itemData struct {
	StartMillis      timeline.Millis `json:"startMillis"`
	EndMillis        timeline.Millis `json:"endMillis"`
	CreatedMillis    timeline.Millis `json:"createdMillis"`
	ModifiedMillis   timeline.Millis `json:"modifiedMillis"`
	DurationMillis   timeline.Millis `json:"durationMillis"`
	Condition        string          `json:"condition"`
	Label            string          `json:"label"`
	LibraryItemID    string          `json:"libraryItemId"`
	IDProgrammatic   string          `json:"id_programmatic"`
	TypeProgrammatic string          `json:"type_programmatic"`
}

type resourcePayload struct {
	Data struct {
		Thumb  string `json:"thumb"`
		BlobID string `json:"blobId"`
	} `json:"data"`
}

// ItemLocation addresses one item inside a sequence by stack and item position.
type ItemLocation struct {
	SequenceID       string `json:"seq_id"`
	Stack            int    `json:"stack"`
	Item             int    `json:"item"`
	ProgrammaticType string `json:"type_programmatic"`
	LibraryItemID    string `json:"libraryItemId"`
}

// ItemUpdate is the payload written back when a campaign item is edited.
type ItemUpdate struct {
	LibraryItemID  string
	ProgrammaticID string
	EditorEmail    string
	Form           string
	Label          string
	Condition      string
	Start          timeline.Millis
	End            timeline.Millis
	DurationMillis int64
	Modified       int64
}

type updateRequest struct {
	Type string            `json:"type"`
	ID   string            `json:"id"`
	Data map[string]string `json:"data"`
}

// flatten mirrors the dashboard's view of a sequence: one item per stack
// entry, in stack then item order.
func (s sequenceResponse) flatten() []timeline.Item {
	var items []timeline.Item
	for si, stack := range s.Stacks {
		for ii, it := range stack.Items {
			items = append(items, it.toItem(si, ii))
		}
	}
	return items
}

func (p itemPayload) toItem(stackIdx, itemIdx int) timeline.Item {
	var blobID string
	for _, r := range p.Resources {
		if r.Data.Thumb == "true" {
			blobID = r.Data.BlobID
			break
		}
	}

	return timeline.Item{
		ItemKey:          p.Data.LibraryItemID,
		Start:            p.Data.StartMillis,
		End:              p.Data.EndMillis,
		Label:            timeline.Text(p.Data.Label),
		Condition:        timeline.Text(p.Data.Condition),
		Created:          p.Data.CreatedMillis,
		Modified:         p.Data.ModifiedMillis,
		Duration:         p.Data.DurationMillis,
		BlobID:           blobID,
		StackIndex:       stackIdx,
		ItemIndex:        itemIdx,
		ProgrammaticID:   p.Data.IDProgrammatic,
		ProgrammaticType: p.Data.TypeProgrammatic,
	}
}

func (u ItemUpdate) request() updateRequest {
	data := map[string]string{
		"modifiedMillis":     timeline.At(u.Modified).String(),
		"condition":          u.Condition,
		"label":              u.Label,
		"libraryItemId":      u.LibraryItemID,
		"id_programmatic":    u.ProgrammaticID,
		"email_programmatic": u.EditorEmail,
		"form_programmatic":  u.Form,
	}
	if u.Start.Valid {
		data["startMillis"] = u.Start.String()
	}
	if u.End.Valid {
		data["endMillis"] = u.End.String()
	}
	if u.DurationMillis > 0 {
		data["durationMillis"] = timeline.At(u.DurationMillis).String()
	}
	return updateRequest{Type: "libraryitem", ID: u.LibraryItemID, Data: data}
}
