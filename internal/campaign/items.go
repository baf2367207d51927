/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package campaign

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/stacks"
	"github.com/friendsincode/signboard/internal/timeline"
)

const (
	DefaultCondition = `displayAspectRatio == "1920x1080"`
	DefaultForm      = "TV Signage 43"
	DefaultDuration  = int64(15000)

	// defaultProgrammaticType marks the house campaign every sequence falls back to.
	defaultProgrammaticType = "default"
)

var (
	// ErrDefaultCampaign is returned when an edit targets a sequence's default campaign.
	ErrDefaultCampaign = errors.New("default campaign cannot be modified")

	// ErrSequenceForbidden is returned when the caller is not a member of the sequence.
	ErrSequenceForbidden = errors.New("no access to sequence")

	// ErrInvalidWindow is returned for unparseable or inverted start/end values.
	ErrInvalidWindow = errors.New("invalid schedule window")

	// ErrLibraryItemRequired is returned when an update names no library item.
	ErrLibraryItemRequired = errors.New("libraryItemId is required")

	// ErrUnknownFormat is returned when an update names a format missing from the catalogue
	// and carries no condition of its own.
	ErrUnknownFormat = errors.New("unknown display format")
)

// ItemEditor is the write side of the Stacks API.
type ItemEditor interface {
	FindItem(ctx context.Context, sequenceID, programmaticID string) (*stacks.ItemLocation, error)
	UpdateItem(ctx context.Context, loc stacks.ItemLocation, upd stacks.ItemUpdate) error
	DeleteItem(ctx context.Context, loc stacks.ItemLocation) error
}

// AccessChecker decides whether a user may act on a sequence.
type AccessChecker interface {
	HasAccess(ctx context.Context, userID, sequenceID string) (bool, error)
}

// FormatCatalog resolves a display format name to its targeting condition.
type FormatCatalog interface {
	ConditionFor(ctx context.Context, form string) (condition string, ok bool, err error)
}

// UpdateRequest carries the editable fields of a campaign item. Start and
// End accept anything ParseMillis does; an empty or "null" End clears it.
type UpdateRequest struct {
	LibraryItemID string `json:"libraryItemId"`
	Start         any    `json:"startMillis"`
	End           any    `json:"endMillis"`
	Label         string `json:"label"`
	Condition     string `json:"condition"`
	Form          string `json:"form"`
}

// ItemService edits and removes individual campaign items.
type ItemService struct {
	editor    ItemEditor
	access    AccessChecker
	formats   FormatCatalog
	publisher Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

// NewItemService wires an item service. formats and publisher may be nil;
// without a catalogue every update falls back to DefaultCondition.
func NewItemService(editor ItemEditor, access AccessChecker, formats FormatCatalog, publisher Publisher, logger zerolog.Logger) *ItemService {
	return &ItemService{
		editor:    editor,
		access:    access,
		formats:   formats,
		publisher: publisher,
		now:       time.Now,
		logger:    logger.With().Str("component", "campaign-items").Logger(),
	}
}

// Locate returns where the item with programmaticID sits in the sequence.
func (s *ItemService) Locate(ctx context.Context, caller Caller, sequenceID, programmaticID string) (*stacks.ItemLocation, error) {
	if err := s.authorize(ctx, caller, sequenceID); err != nil {
		return nil, err
	}
	return s.editor.FindItem(ctx, sequenceID, programmaticID)
}

// Update rewrites the item's schedule window and metadata.
func (s *ItemService) Update(ctx context.Context, caller Caller, sequenceID, programmaticID string, req UpdateRequest) (*stacks.ItemLocation, error) {
	if err := s.authorize(ctx, caller, sequenceID); err != nil {
		return nil, err
	}
	upd, err := s.buildUpdate(ctx, caller, programmaticID, req)
	if err != nil {
		return nil, err
	}

	loc, err := s.editor.FindItem(ctx, sequenceID, programmaticID)
	if err != nil {
		return nil, err
	}
	if loc.ProgrammaticType == defaultProgrammaticType {
		return nil, ErrDefaultCampaign
	}

	if err := s.editor.UpdateItem(ctx, *loc, upd); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seq_id", sequenceID).
		Str("id_programmatic", programmaticID).
		Int("stack", loc.Stack).
		Int("item", loc.Item).
		Str("user_id", caller.UserID).
		Msg("campaign item updated")

	s.publish(events.EventCampaignItemUpdated, caller, loc, programmaticID, events.Payload{
		"libraryItemId": upd.LibraryItemID,
		"startMillis":   upd.Start,
		"endMillis":     upd.End,
		"label":         upd.Label,
	})
	return loc, nil
}

// Delete removes the item from the sequence.
func (s *ItemService) Delete(ctx context.Context, caller Caller, sequenceID, programmaticID string) (*stacks.ItemLocation, error) {
	loc, err := s.Locate(ctx, caller, sequenceID, programmaticID)
	if err != nil {
		return nil, err
	}
	if loc.ProgrammaticType == defaultProgrammaticType {
		return nil, ErrDefaultCampaign
	}

	if err := s.editor.DeleteItem(ctx, *loc); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("seq_id", sequenceID).
		Str("id_programmatic", programmaticID).
		Int("stack", loc.Stack).
		Int("item", loc.Item).
		Str("user_id", caller.UserID).
		Msg("campaign item deleted")

	s.publish(events.EventCampaignItemDeleted, caller, loc, programmaticID, events.Payload{
		"libraryItemId": loc.LibraryItemID,
	})
	return loc, nil
}

func (s *ItemService) authorize(ctx context.Context, caller Caller, sequenceID string) error {
	if !caller.Authenticated || caller.UserID == "" {
		return ErrNotAuthenticated
	}
	ok, err := s.access.HasAccess(ctx, caller.UserID, sequenceID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !ok {
		return ErrSequenceForbidden
	}
	return nil
}

func (s *ItemService) buildUpdate(ctx context.Context, caller Caller, programmaticID string, req UpdateRequest) (stacks.ItemUpdate, error) {
	libraryID := strings.TrimSpace(req.LibraryItemID)
	if libraryID == "" {
		return stacks.ItemUpdate{}, ErrLibraryItemRequired
	}

	start := timeline.ParseMillis(req.Start)
	if !start.Valid && !isBlank(req.Start) {
		return stacks.ItemUpdate{}, fmt.Errorf("%w: startMillis %v", ErrInvalidWindow, req.Start)
	}
	end := timeline.ParseMillis(req.End)
	if !end.Valid && !isBlank(req.End) {
		return stacks.ItemUpdate{}, fmt.Errorf("%w: endMillis %v", ErrInvalidWindow, req.End)
	}
	if start.Valid && end.Valid && start.Value >= end.Value {
		return stacks.ItemUpdate{}, fmt.Errorf("%w: start %d is not before end %d", ErrInvalidWindow, start.Value, end.Value)
	}

	form := strings.TrimSpace(req.Form)
	named := form != ""
	if !named {
		form = DefaultForm
	}
	condition := strings.TrimSpace(req.Condition)
	if condition == "" {
		var err error
		if condition, err = s.conditionFor(ctx, form, named); err != nil {
			return stacks.ItemUpdate{}, err
		}
	}

	return stacks.ItemUpdate{
		LibraryItemID:  libraryID,
		ProgrammaticID: programmaticID,
		EditorEmail:    caller.Email,
		Form:           form,
		Label:          req.Label,
		Condition:      condition,
		Start:          start,
		End:            end,
		DurationMillis: DefaultDuration,
		Modified:       s.now().UnixMilli(),
	}, nil
}

// conditionFor looks the form up in the catalogue. A defaulted form that is not
// catalogued falls back to DefaultCondition; a named one must exist.
func (s *ItemService) conditionFor(ctx context.Context, form string, named bool) (string, error) {
	if s.formats != nil {
		condition, ok, err := s.formats.ConditionFor(ctx, form)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		if ok && condition != "" {
			return condition, nil
		}
	}
	if named && s.formats != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, form)
	}
	return DefaultCondition, nil
}

func (s *ItemService) publish(eventType events.EventType, caller Caller, loc *stacks.ItemLocation, programmaticID string, extra events.Payload) {
	if s.publisher == nil {
		return
	}
	payload := events.Payload{
		"user_id":       caller.UserID,
		"user_email":    caller.Email,
		"seq_id":        loc.SequenceID,
		"resource_type": "campaign_item",
		"resource_id":   programmaticID,
		"stack":         loc.Stack,
		"item":          loc.Item,
	}
	for k, v := range extra {
		payload[k] = v
	}
	s.publisher.Publish(eventType, payload)
}

// isBlank reports values the normalizer treats as deliberately empty.
func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		s := strings.TrimSpace(t)
		return s == "" || s == "null"
	default:
		return false
	}
}
