package events

import (
	"testing"
)

type payload struct {
	RunID string `json:"runID"`
	OK    bool   `json:"ok"`
}

func TestPublishSubscribe(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()
	defer h.Unsubscribe(ch)

	h.Publish(RunFinished, payload{RunID: "abc", OK: true})

	ev := <-ch
	if ev.Name != RunFinished {
		t.Fatalf("event name = %s", ev.Name)
	}
	got, err := DecodeAs[payload](ev)
	if err != nil {
		t.Fatalf("DecodeAs: %v", err)
	}
	if got.RunID != "abc" || !got.OK {
		t.Fatalf("payload = %+v", got)
	}
}

func TestPublishDropsForSlowSubscriber(t *testing.T) {
	h := NewEventHub()
	ch := h.Subscribe()

	for i := 0; i < subscriberBuffer+5; i++ {
		h.Publish(RunStarted, payload{})
	}
	if len(ch) != subscriberBuffer {
		t.Fatalf("buffered = %d, want %d", len(ch), subscriberBuffer)
	}

	h.Unsubscribe(ch)
	h.Unsubscribe(ch)
	if h.Subscribers() != 0 {
		t.Fatalf("subscribers = %d after unsubscribe", h.Subscribers())
	}
}

func TestNilHubAndEmptyPayload(t *testing.T) {
	var h *EventHub
	h.Publish(RunStarted, payload{})

	got, err := DecodeAs[payload](Event{Name: RunStarted})
	if err != nil || got != (payload{}) {
		t.Fatalf("DecodeAs(empty) = %+v, %v", got, err)
	}
}
