/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus forwards campaign events between signboard instances so
// every dashboard connected to /api/v1/events sees changes made through any node.
package eventbus

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friendsincode/signboard/internal/events"
	"github.com/friendsincode/signboard/internal/telemetry"
)

// channelPrefix namespaces Redis channels and NATS subjects.
const channelPrefix = "signboard.events."

// envelope is the wire format shared by both transports.
type envelope struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

func encode(eventType events.EventType, payload events.Payload, nodeID string) ([]byte, error) {
	return json.Marshal(envelope{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    nodeID,
		MessageID: uuid.NewString(),
	})
}

func decode(data []byte) (*envelope, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal relay message: %w", err)
	}
	if env.EventType == "" {
		return nil, fmt.Errorf("relay message without event type")
	}
	return &env, nil
}

// NodeID returns instanceID, or hostname plus a random suffix when unset.
func NodeID(instanceID string) string {
	if instanceID != "" {
		return instanceID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "signboard"
	}
	return host + "-" + uuid.NewString()[:8]
}

func shouldRelay(eventType events.EventType) bool {
	for _, t := range events.Relayed {
		if t == eventType {
			return true
		}
	}
	return false
}

// relay is the local half of a distributed bus: subscribers always attach to
// the in-process bus, and messages from other nodes are republished into it.
type relay struct {
	local     *events.Bus
	nodeID    string
	transport string
	logger    zerolog.Logger
}

func newRelay(transport, nodeID string, logger zerolog.Logger) relay {
	return relay{
		local:     events.NewBus(),
		nodeID:    nodeID,
		transport: transport,
		logger:    logger.With().Str("component", "eventbus").Str("transport", transport).Logger(),
	}
}

// Subscribe registers a subscriber for an event type.
func (r *relay) Subscribe(eventType events.EventType) events.Subscriber {
	return r.local.Subscribe(eventType)
}

// Unsubscribe removes a subscriber.
func (r *relay) Unsubscribe(eventType events.EventType, sub events.Subscriber) {
	r.local.Unsubscribe(eventType, sub)
}

// deliver hands a remote message to local subscribers, skipping our own echoes.
func (r *relay) deliver(data []byte) {
	env, err := decode(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("dropping malformed relay message")
		return
	}
	if env.NodeID == r.nodeID {
		return
	}
	if !shouldRelay(env.EventType) {
		r.logger.Debug().Str("event_type", string(env.EventType)).Msg("ignoring non-relayed event type")
		return
	}

	payload := env.Payload
	if payload == nil {
		payload = events.Payload{}
	}
	payload[events.SourceNodeKey] = env.NodeID

	telemetry.EventsRelayed.WithLabelValues(r.transport, "inbound").Inc()
	r.local.Publish(env.EventType, payload)

	r.logger.Debug().
		Str("event_type", string(env.EventType)).
		Str("source_node", env.NodeID).
		Msg("delivered relayed event to local subscribers")
}
