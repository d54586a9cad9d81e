package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherDeliversToSubscribers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var got []Event
	dispatcher.Subscribe(EventTicketAssigned, func(_ context.Context, event Event) error {
		got = append(got, event)
		return nil
	})

	event := NewEvent(EventTicketAssigned, "t1", SystemActor("svc"), nil)
	if err := dispatcher.Publish(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(got) != 1 || got[0].TicketID != "t1" {
		t.Fatalf("expected delivered event, got %v", got)
	}
	if got[0].ID == "" || got[0].Timestamp.IsZero() {
		t.Fatal("expected populated id and timestamp")
	}
}

func TestDispatcherIgnoresUnsubscribedTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	called := false
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		called = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), NewEvent(EventTicketTagged, "t1", UserActor("u1"), nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if called {
		t.Fatal("handler for another type must not fire")
	}
}

func TestDispatcherContinuesPastHandlerErrors(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var order []string
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		order = append(order, "first")
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})

	if err := dispatcher.Publish(context.Background(), NewEvent(EventTicketCreated, "t1", UserActor("u1"), nil)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("expected both handlers to run, got %v", order)
	}
}
