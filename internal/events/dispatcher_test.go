package events

import (
	"context"
	"errors"
	"testing"
)

func TestDispatcherInvokesSubscribersInOrder(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	var calls []string
	dispatcher.Subscribe(EventItemClaimed, func(ctx context.Context, event Event) error {
		calls = append(calls, "first")
		return nil
	})
	dispatcher.Subscribe(EventItemClaimed, func(ctx context.Context, event Event) error {
		calls = append(calls, "second")
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventItemClaimed}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Fatalf("calls = %v", calls)
	}
}

func TestDispatcherHandlerErrorDoesNotBlockOthers(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	invoked := false
	dispatcher.Subscribe(EventItemResolved, func(ctx context.Context, event Event) error {
		return errors.New("boom")
	})
	dispatcher.Subscribe(EventItemResolved, func(ctx context.Context, event Event) error {
		invoked = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventItemResolved}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if !invoked {
		t.Fatal("later handler skipped after earlier failure")
	}
}

func TestDispatcherIgnoresOtherEventTypes(t *testing.T) {
	dispatcher := NewInMemoryDispatcher()

	invoked := false
	dispatcher.Subscribe(EventItemReset, func(ctx context.Context, event Event) error {
		invoked = true
		return nil
	})

	if err := dispatcher.Publish(context.Background(), Event{Type: EventItemClaimed}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if invoked {
		t.Fatal("handler invoked for a type it never subscribed to")
	}
}
