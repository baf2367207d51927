/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package campaign assembles the campaign dashboard: every sequence a caller
// can see, its items fetched fresh from Stacks, and each item's run status.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/telemetry"
	"github.com/friendsincode/signboard/internal/timeline"
)

const tracerName = "signboard/campaign"

var (
	// ErrNotAuthenticated is returned when the caller carries no verified identity.
	ErrNotAuthenticated = errors.New("user not authenticated")

	// ErrPersistence wraps failures reading sequences or memberships from the store.
	ErrPersistence = errors.New("sequence store unavailable")
)

// Slot is one sequence as seen by the aggregator.
type Slot struct {
	ID   string `json:"seq_id"`
	Name string `json:"seq_name"`
}

// Caller identifies who is asking. Authenticated is the verdict of the auth layer.
type Caller struct {
	UserID        string
	Email         string
	Authenticated bool
}

// SlotResolver lists the sequences a user may see, in display order.
type SlotResolver interface {
	ListAccessibleSlots(ctx context.Context, userID string) ([]Slot, error)
}

// ItemStore fetches the raw items scheduled in one sequence.
type ItemStore interface {
	ListItems(ctx context.Context, slotID string) ([]timeline.Item, error)
}

// Publisher receives aggregation summaries.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Result is the dashboard payload.
type Result struct {
	Success         bool            `json:"success"`
	Data            []timeline.Item `json:"data"`
	TotalSequences  int             `json:"total_sequences"`
	TotalItems      int             `json:"total_items"`
	PartialFailures []string        `json:"partial_failures"`
}

// Options tunes the fan-out.
type Options struct {
	Concurrency int
	SlotTimeout time.Duration
	LeaderOrder timeline.LeaderOrder

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Aggregator runs AggregateAll.
type Aggregator struct {
	slots     SlotResolver
	items     ItemStore
	publisher Publisher
	opts      Options
	logger    zerolog.Logger
}

// NewAggregator wires an aggregator. publisher may be nil.
func NewAggregator(slots SlotResolver, items ItemStore, publisher Publisher, opts Options, logger zerolog.Logger) *Aggregator {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.SlotTimeout <= 0 {
		opts.SlotTimeout = 10 * time.Second
	}
	if opts.LeaderOrder == "" {
		opts.LeaderOrder = timeline.OrderFetch
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Aggregator{
		slots:     slots,
		items:     items,
		publisher: publisher,
		opts:      opts,
		logger:    logger.With().Str("component", "campaign").Logger(),
	}
}

// AggregateAll returns every item across the caller's sequences, classified
// against a single instant. A sequence whose items cannot be fetched is
// skipped and listed in PartialFailures; store errors abort the call.
func (a *Aggregator) AggregateAll(ctx context.Context, caller Caller) (*Result, error) {
	started := time.Now()
	now := a.opts.Now().UnixMilli()

	ctx, span := telemetry.StartSpan(ctx, tracerName, "campaign.aggregate_all",
		attribute.String("user.id", caller.UserID),
		attribute.String("leader.order", string(a.opts.LeaderOrder)),
	)
	defer span.End()

	if !caller.Authenticated || caller.UserID == "" {
		return nil, ErrNotAuthenticated
	}

	slots, err := a.slots.ListAccessibleSlots(ctx, caller.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		if errors.Is(err, ErrNotAuthenticated) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	fetched, failed := a.fetchAll(ctx, slots)
	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &Result{
		Success:         true,
		Data:            make([]timeline.Item, 0),
		TotalSequences:  len(slots),
		PartialFailures: make([]string, 0),
	}
	for i, slot := range slots {
		if failed[i] {
			result.PartialFailures = append(result.PartialFailures, slot.ID)
			continue
		}
		items := fetched[i]
		for j := range items {
			items[j].SlotID = slot.ID
			items[j].SlotName = slot.Name
		}
		result.Data = append(result.Data, timeline.ClassifySlot(items, now, a.opts.LeaderOrder)...)
	}
	result.TotalItems = len(result.Data)

	counts := timeline.CountByStatus(result.Data)
	for status, n := range counts {
		telemetry.ItemsClassified.WithLabelValues(string(status)).Add(float64(n))
	}
	telemetry.AggregationDuration.Observe(time.Since(started).Seconds())
	span.SetAttributes(
		attribute.Int("campaign.sequences", result.TotalSequences),
		attribute.Int("campaign.items", result.TotalItems),
		attribute.Int("campaign.partial_failures", len(result.PartialFailures)),
	)

	a.logger.Debug().
		Str("user_id", caller.UserID).
		Int("sequences", result.TotalSequences).
		Int("items", result.TotalItems).
		Int("failed", len(result.PartialFailures)).
		Dur("took", time.Since(started)).
		Msg("campaigns aggregated")

	if a.publisher != nil {
		payload := events.Payload{
			"user_id":          caller.UserID,
			"now":              now,
			"total_sequences":  result.TotalSequences,
			"total_items":      result.TotalItems,
			"partial_failures": result.PartialFailures,
		}
		for status, n := range counts {
			payload[string(status)] = n
		}
		a.publisher.Publish(events.EventCampaignsAggregated, payload)
	}

	return result, nil
}

// fetchAll lists items for every slot with bounded concurrency. Results are
// indexed by slot position so merge order never depends on completion order.
func (a *Aggregator) fetchAll(ctx context.Context, slots []Slot) ([][]timeline.Item, []bool) {
	fetched := make([][]timeline.Item, len(slots))
	failed := make([]bool, len(slots))

	sem := make(chan struct{}, a.opts.Concurrency)
	var wg sync.WaitGroup

	for i, slot := range slots {
		wg.Add(1)
		go func(i int, slot Slot) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				failed[i] = true
				return
			}
			defer func() { <-sem }()

			items, err := a.fetchSlot(ctx, slot)
			if err != nil {
				failed[i] = true
				telemetry.SlotFetchFailures.Inc()
				a.logger.Warn().Err(err).
					Str("seq_id", slot.ID).
					Str("seq_name", slot.Name).
					Msg("skipping sequence, item fetch failed")
				return
			}
			fetched[i] = items
		}(i, slot)
	}

	wg.Wait()
	return fetched, failed
}

func (a *Aggregator) fetchSlot(ctx context.Context, slot Slot) ([]timeline.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.SlotTimeout)
	defer cancel()

	items, err := a.items.ListItems(ctx, slot.ID)
	if err != nil {
		return nil, fmt.Errorf("list items for %s: %w", slot.ID, err)
	}
	return items, nil
}
