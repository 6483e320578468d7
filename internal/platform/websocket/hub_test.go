package websocket

import (
	"encoding/json"
	"testing"
	"time"
)

func newTestClient(topics ...string) *Client {
	return &Client{
		ID:     "test",
		Topics: topics,
		Send:   make(chan []byte, 8),
	}
}

func TestRegisterAndBroadcast(t *testing.T) {
	hub := NewHub()
	c1 := newTestClient("chat:1:2")
	c2 := newTestClient("chat:3:4")
	hub.Register(c1)
	hub.Register(c2)

	hub.Broadcast("chat:1:2", Event{Type: "mensaje", Topic: "chat:1:2", Timestamp: time.Now()})

	select {
	case raw := <-c1.Send:
		var evt Event
		if err := json.Unmarshal(raw, &evt); err != nil {
			t.Fatal(err)
		}
		if evt.Topic != "chat:1:2" {
			t.Errorf("topic = %q", evt.Topic)
		}
	default:
		t.Fatal("subscriber did not receive event")
	}

	select {
	case <-c2.Send:
		t.Fatal("client on another topic received the event")
	default:
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	hub := NewHub()
	c := newTestClient("chat:1:2")
	hub.Register(c)
	hub.Unregister(c)
	hub.Unregister(c) // second call is a no-op

	if _, open := <-c.Send; open {
		t.Error("Send channel should be closed after Unregister")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after unregister", hub.ClientCount())
	}
	if hub.TopicCount("chat:1:2") != 0 {
		t.Errorf("TopicCount = %d after unregister", hub.TopicCount("chat:1:2"))
	}
}

func TestBroadcastSkipsFullBuffers(t *testing.T) {
	hub := NewHub()
	c := &Client{ID: "slow", Topics: []string{"t"}, Send: make(chan []byte)}
	hub.Register(c)

	done := make(chan struct{})
	go func() {
		hub.Broadcast("t", Event{Type: "mensaje", Topic: "t"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Broadcast blocked on an unbuffered client")
	}
}
