package eventing

import (
	"context"
	"errors"
	"log"
	"strings"
	"testing"

	"zepp-bridge/internal/ingest/events"
)

func TestBusFanOut(t *testing.T) {
	bus := NewBus(log.New(&strings.Builder{}, "", 0))

	var first, second int
	bus.SubscribePayloadReceived("first", func(_ context.Context, event events.PayloadReceived) error {
		first++
		if event.DeviceID != "watch-1" {
			t.Errorf("unexpected device id %q", event.DeviceID)
		}
		return nil
	})
	bus.SubscribePayloadReceived("second", func(_ context.Context, _ events.PayloadReceived) error {
		second++
		return nil
	})

	bus.PublishPayloadReceived(context.Background(), events.PayloadReceived{DeviceID: "watch-1"})
	if first != 1 || second != 1 {
		t.Fatalf("expected each subscriber called once, got %d and %d", first, second)
	}
}

func TestBusFailingSubscriberDoesNotBlockOthers(t *testing.T) {
	var logged strings.Builder
	bus := NewBus(log.New(&logged, "", 0))

	var called bool
	bus.SubscribePayloadReceived("broken", func(_ context.Context, _ events.PayloadReceived) error {
		return errors.New("boom")
	})
	bus.SubscribePayloadReceived("healthy", func(_ context.Context, _ events.PayloadReceived) error {
		called = true
		return nil
	})

	bus.PublishPayloadReceived(context.Background(), events.PayloadReceived{DeviceID: "watch-1"})
	if !called {
		t.Fatal("expected healthy subscriber to run after failing one")
	}
	if !strings.Contains(logged.String(), "broken") {
		t.Fatalf("expected failure to be logged, got %q", logged.String())
	}
}

func TestBusNilHandlerIgnored(t *testing.T) {
	bus := NewBus(nil)
	bus.SubscribePayloadReceived("noop", nil)
	bus.PublishPayloadReceived(context.Background(), events.PayloadReceived{DeviceID: "watch-1"})
}
