package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishFanOut(t *testing.T) {
	bus := NewBus()
	a, unsubA := bus.Subscribe(EventOrderFill, 1)
	defer unsubA()
	b, unsubB := bus.Subscribe(EventOrderFill, 1)
	defer unsubB()

	bus.Publish(EventOrderFill, "payload")

	for _, ch := range []<-chan any{a, b} {
		select {
		case v := <-ch:
			assert.Equal(t, "payload", v)
		default:
			t.Fatal("subscriber missed the event")
		}
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventOrderFill, 1)
	defer unsub()

	bus.Publish(EventOrderFill, 1)
	bus.Publish(EventOrderFill, 2) // buffer full, dropped

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected second delivery: %v", v)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch, unsub := bus.Subscribe(EventCircuitBreak, 1)
	unsub()

	_, open := <-ch
	require.False(t, open)

	// Publishing to an event with no subscribers is a no-op.
	bus.Publish(EventCircuitBreak, "detail")
}

func TestSubscribeIsPerEvent(t *testing.T) {
	bus := NewBus()
	fills, unsub := bus.Subscribe(EventOrderFill, 1)
	defer unsub()

	bus.Publish(EventAccountUpdate, "other")
	select {
	case v := <-fills:
		t.Fatalf("wrong event delivered: %v", v)
	default:
	}
}
