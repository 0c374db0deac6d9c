package ws

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/partydeck/partydeck/internal/models"
)

func newTestClient(code string) *client {
	return &client{
		handler: &Handler{logger: zerolog.Nop()},
		send:    make(chan []byte, 1),
		code:    code,
	}
}

func TestHubPublishRoutesByRoom(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	inRoom := newTestClient("WXYZ2")
	elsewhere := newTestClient("ABCD2")
	hub.register("WXYZ2", inRoom)
	hub.register("ABCD2", elsewhere)

	hub.Publish(models.Event{
		Type:    models.EventActorChanged,
		Code:    "WXYZ2",
		ActorID: "actor-1",
		At:      time.UnixMilli(1000),
	})

	select {
	case payload := <-inRoom.send:
		var envelope Envelope
		if err := json.Unmarshal(payload, &envelope); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if envelope.Type != envelopeEvent {
			t.Errorf("envelope type = %q, want %q", envelope.Type, envelopeEvent)
		}
		if envelope.Event == nil || envelope.Event.ActorID != "actor-1" {
			t.Errorf("envelope event = %+v, want actor-1", envelope.Event)
		}
	default:
		t.Fatal("client in the room received nothing")
	}

	select {
	case <-elsewhere.send:
		t.Fatal("client in another room received the event")
	default:
	}
}

func TestHubUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	c := newTestClient("WXYZ2")
	hub.register("WXYZ2", c)
	hub.unregister("WXYZ2", c)

	hub.Publish(models.Event{Type: models.EventActorChanged, Code: "WXYZ2"})

	select {
	case <-c.send:
		t.Fatal("unregistered client received the event")
	default:
	}
}

func TestTrySendRacingCloseDoesNotPanic(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	c := newTestClient("WXYZ2")
	c.handler.hub = hub
	hub.register("WXYZ2", c)

	// A replica snapshot callback can still be delivering while the read
	// loop tears the connection down
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for j := 0; j < 100; j++ {
				c.trySend([]byte("snapshot"))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-start
		c.close()
	}()

	close(start)
	wg.Wait()

	// Sends after close are silently dropped
	c.trySend([]byte("late"))
}

func TestHubDropsOnFullBuffer(t *testing.T) {
	hub := NewHub(zerolog.Nop())

	c := newTestClient("WXYZ2")
	hub.register("WXYZ2", c)

	// Fill the buffer; the next publish must not block
	c.send <- []byte("backlog")

	done := make(chan struct{})
	go func() {
		hub.Publish(models.Event{Type: models.EventActorChanged, Code: "WXYZ2"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow consumer")
	}
}
