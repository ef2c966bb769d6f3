package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"electionkeeper/contexts/governance/election-ledger/ports"
)

func TestPublishFansOutPerConsumerGroup(t *testing.T) {
	bus, err := NewKafka([]string{"localhost:9092"}, nil)
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	audit := make(chan ports.EventEnvelope, 4)
	projection := make(chan ports.EventEnvelope, 4)
	forward := func(out chan ports.EventEnvelope) func(context.Context, ports.EventEnvelope) error {
		return func(_ context.Context, event ports.EventEnvelope) error {
			out <- event
			return nil
		}
	}
	if err := bus.Subscribe(ctx, "ledger.vote_cast", "audit", forward(audit)); err != nil {
		t.Fatalf("subscribe audit: %v", err)
	}
	if err := bus.Subscribe(ctx, "ledger.vote_cast", "projection", forward(projection)); err != nil {
		t.Fatalf("subscribe projection: %v", err)
	}

	event := ports.EventEnvelope{EventID: "evt-1", EventType: "ledger.vote_cast"}
	if err := bus.Publish(ctx, "ledger.vote_cast", event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	for name, ch := range map[string]chan ports.EventEnvelope{"audit": audit, "projection": projection} {
		select {
		case got := <-ch:
			if got.EventID != "evt-1" {
				t.Fatalf("%s received %+v", name, got)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s did not receive event", name)
		}
	}
}

func TestPublishWithoutSubscribersSucceeds(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	defer bus.Close()
	if err := bus.Publish(context.Background(), "ledger.deployed", ports.EventEnvelope{EventID: "x"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestClosedBusRejectsTraffic(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	if err := bus.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := bus.Publish(context.Background(), "t", ports.EventEnvelope{}); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected closed bus on publish, got %v", err)
	}
	handler := func(context.Context, ports.EventEnvelope) error { return nil }
	if err := bus.Subscribe(context.Background(), "t", "g", handler); !errors.Is(err, ErrBusClosed) {
		t.Fatalf("expected closed bus on subscribe, got %v", err)
	}
}

func TestSubscribeRequiresTopicAndGroup(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	defer bus.Close()
	handler := func(context.Context, ports.EventEnvelope) error { return nil }
	if err := bus.Subscribe(context.Background(), " ", "g", handler); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if err := bus.Subscribe(context.Background(), "t", "", handler); err == nil {
		t.Fatal("expected error for empty consumer group")
	}
}

func TestPublishHonorsContextWhenQueueFull(t *testing.T) {
	bus, _ := NewKafka(nil, nil)
	bus.buffer = 1
	defer bus.Close()

	block := make(chan struct{})
	defer close(block)
	handler := func(context.Context, ports.EventEnvelope) error {
		<-block
		return nil
	}
	if err := bus.Subscribe(context.Background(), "t", "g", handler); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = bus.Publish(ctx, "t", ports.EventEnvelope{EventID: "e"})
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
