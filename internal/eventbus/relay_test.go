package eventbus

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/signboard/internal/events"
)

func TestEncodeDecode(t *testing.T) {
	data, err := encode(events.EventCampaignItemUpdated, events.Payload{"seq_id": "S1"}, "node-a")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.EventType != events.EventCampaignItemUpdated || env.NodeID != "node-a" {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	if env.Payload["seq_id"] != "S1" || env.MessageID == "" {
		t.Fatalf("unexpected payload: %+v", env)
	}

	if _, err := decode([]byte(`{"payload":{}}`)); err == nil {
		t.Fatal("expected error for missing event type")
	}
	if _, err := decode([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed message")
	}
}

func TestRelayDeliverSkipsOwnNode(t *testing.T) {
	r := newRelay("test", "node-a", zerolog.Nop())
	sub := r.Subscribe(events.EventCampaignItemDeleted)

	own, _ := encode(events.EventCampaignItemDeleted, events.Payload{"from": "self"}, "node-a")
	r.deliver(own)

	remote, _ := encode(events.EventCampaignItemDeleted, events.Payload{"from": "peer"}, "node-b")
	r.deliver(remote)

	select {
	case p := <-sub:
		if p["from"] != "peer" {
			t.Fatalf("expected peer payload first, got %v", p)
		}
		if p[events.SourceNodeKey] != "node-b" {
			t.Fatalf("expected source node marker, got %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("expected remote delivery")
	}
	select {
	case p := <-sub:
		t.Fatalf("unexpected second delivery %v", p)
	default:
	}
}

func TestRelayDeliverIgnoresAuditEvents(t *testing.T) {
	r := newRelay("test", "node-a", zerolog.Nop())
	sub := r.Subscribe(events.EventAuditSequenceCreate)

	data, _ := encode(events.EventAuditSequenceCreate, events.Payload{}, "node-b")
	r.deliver(data)

	select {
	case p := <-sub:
		t.Fatalf("audit events must stay local, got %v", p)
	default:
	}
}

func TestNodeID(t *testing.T) {
	if got := NodeID("instance-1"); got != "instance-1" {
		t.Fatalf("expected configured id, got %q", got)
	}
	a, b := NodeID(""), NodeID("")
	if a == b {
		t.Fatalf("expected unique generated ids, got %q twice", a)
	}
	if !strings.Contains(a, "-") {
		t.Fatalf("expected host-suffix form, got %q", a)
	}
}

func TestRedisBusFallsBackToLocal(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond

	rb := NewRedisBus(cfg, "node-a", zerolog.Nop())
	defer rb.Close()

	if !rb.fallbackActive() {
		t.Fatal("expected fallback when Redis is unreachable")
	}

	sub := rb.Subscribe(events.EventSequenceUpdated)
	rb.Publish(events.EventSequenceUpdated, events.Payload{"seq_id": "S1"})

	select {
	case p := <-sub:
		if p["seq_id"] != "S1" {
			t.Fatalf("unexpected payload %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("expected local delivery in fallback mode")
	}
}

func TestNATSBusFallsBackToLocal(t *testing.T) {
	cfg := DefaultNATSConfig()
	cfg.URL = "nats://127.0.0.1:1"
	cfg.Timeout = 200 * time.Millisecond
	cfg.MaxReconnects = 0

	nb := NewNATSBus(cfg, "node-a", zerolog.Nop())
	defer nb.Close()

	if nb.conn != nil {
		t.Fatal("expected no connection when NATS is unreachable")
	}

	sub := nb.Subscribe(events.EventCampaignsAggregated)
	nb.Publish(events.EventCampaignsAggregated, events.Payload{"total_items": 3})

	select {
	case p := <-sub:
		if p["total_items"] != 3 {
			t.Fatalf("unexpected payload %v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("expected local delivery in fallback mode")
	}
}
