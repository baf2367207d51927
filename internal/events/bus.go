/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	EventHealth EventType = "health"

	// Campaign events, streamed to dashboards over /api/v1/events
	EventCampaignsAggregated EventType = "campaign.aggregated"
	EventCampaignItemUpdated EventType = "campaign.item_updated"
	EventCampaignItemDeleted EventType = "campaign.item_deleted"
	EventSequenceUpdated     EventType = "sequence.updated"

	// Audit events (for operations that need explicit audit logging)
	EventAuditUserLogin        EventType = "audit.user.login"
	EventAuditUserCreate       EventType = "audit.user.create"
	EventAuditSequenceCreate   EventType = "audit.sequence.create"
	EventAuditSequenceUpdate   EventType = "audit.sequence.update"
	EventAuditSequenceDelete   EventType = "audit.sequence.delete"
	EventAuditSequenceAssign   EventType = "audit.sequence.assign"
	EventAuditSequenceUnassign EventType = "audit.sequence.unassign"
	EventAuditFormatCreate     EventType = "audit.format.create"
	EventAuditFormatUpdate     EventType = "audit.format.update"
	EventAuditFormatDelete     EventType = "audit.format.delete"
)

// Relayed lists the event types distributed relays forward between instances.
var Relayed = []EventType{
	EventCampaignsAggregated,
	EventCampaignItemUpdated,
	EventCampaignItemDeleted,
	EventSequenceUpdated,
}

// SourceNodeKey is set on payloads that arrived from another instance.
const SourceNodeKey = "source_node"

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Broker is the pubsub surface shared by Bus and the distributed relays.
type Broker interface {
	Publish(eventType EventType, payload Payload)
	Subscribe(eventType EventType) Subscriber
	Unsubscribe(eventType EventType, sub Subscriber)
}

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 16)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers. Slow subscribers miss events rather than block publishers.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes the subscriber and closes it. Unknown subscribers are ignored.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			b.subs[eventType] = append(subs[:i], subs[i+1:]...)
			close(sub)
			return
		}
	}
}
