package websocket

import (
	"encoding/json"
	"log/slog"
	"testing"
)

func testHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(slog.Default())
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := testHub(t)
	c := &Client{hub: hub, outbox: make(chan []byte, 1)}

	hub.Register(c)
	if hub.ClientCount() != 1 {
		t.Fatalf("client count = %d, want 1", hub.ClientCount())
	}

	hub.Unregister(c)
	if hub.ClientCount() != 0 {
		t.Fatalf("client count = %d, want 0", hub.ClientCount())
	}

	// Double unregister must not panic (channel already closed).
	hub.Unregister(c)
}

func TestHubBroadcast(t *testing.T) {
	hub := testHub(t)
	c := &Client{hub: hub, outbox: make(chan []byte, 4)}
	hub.Register(c)

	hub.Broadcast(Message{Type: "day_updated", Day: "2024-01-09"})

	select {
	case raw := <-c.outbox:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("unmarshal broadcast: %v", err)
		}
		if msg.Type != "day_updated" || msg.Day != "2024-01-09" {
			t.Errorf("got %+v", msg)
		}
	default:
		t.Fatal("no message delivered")
	}
}

func TestHubBroadcastFullBufferDoesNotBlock(t *testing.T) {
	hub := testHub(t)
	c := &Client{hub: hub, outbox: make(chan []byte)}
	hub.Register(c)

	done := make(chan struct{})
	go func() {
		hub.Broadcast(Message{Type: "day_updated"})
		close(done)
	}()

	select {
	case <-done:
	default:
		// Give the goroutine a chance; Broadcast must drop, not block.
		<-done
	}
}
