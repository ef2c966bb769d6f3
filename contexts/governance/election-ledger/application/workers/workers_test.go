package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"electionkeeper/contexts/governance/election-ledger/adapters/memory"
	"electionkeeper/contexts/governance/election-ledger/application/commands"
	"electionkeeper/contexts/governance/election-ledger/domain/entities"
	"electionkeeper/contexts/governance/election-ledger/ports"
)

type recordingPublisher struct {
	topics []string
	events []ports.EventEnvelope
	failAt int
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	if p.failAt > 0 && len(p.events)+1 == p.failAt {
		return errors.New("broker unavailable")
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

type recordingSubscriber struct {
	handlers map[string]func(context.Context, ports.EventEnvelope) error
}

func (s *recordingSubscriber) Subscribe(
	_ context.Context,
	topic string,
	_ string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	if s.handlers == nil {
		s.handlers = make(map[string]func(context.Context, ports.EventEnvelope) error)
	}
	s.handlers[topic] = handler
	return nil
}

func seedCommands(t *testing.T, store *memory.Store) {
	t.Helper()
	store.SetNow(func() time.Time { return time.UnixMilli(10) })
	uc := &commands.LedgerUseCase{Store: store, Clock: store, IDGen: store}
	admin := entities.PublicKey{0: 1}
	for _, cmd := range []commands.Command{
		commands.DeployCommand{StartAt: 0, EndAt: 100},
		commands.AddOrUpdateProjectCommand{ProjectID: 1, Project: entities.Project{Name: "p"}},
		commands.AddOrUpdateParticipantCommand{PublicKey: admin, VotingPower: 3},
		commands.CastVoteCommand{ProjectID: 1, Amount: 2},
	} {
		if _, err := uc.Execute(context.Background(), admin, cmd); err != nil {
			t.Fatalf("%s: %v", cmd.Method(), err)
		}
	}
}

func TestOutboxRelayPublishesInCommitOrder(t *testing.T) {
	store := memory.NewStore()
	seedCommands(t, store)
	publisher := &recordingPublisher{}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store, BatchSize: 10}

	count, err := relay.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("relay: %v", err)
	}
	if count != 4 {
		t.Fatalf("expected 4 published rows, got %d", count)
	}
	want := []string{
		commands.EventLedgerDeployed,
		commands.EventProjectUpserted,
		commands.EventParticipantUpserted,
		commands.EventVoteCast,
	}
	for i, topic := range want {
		if publisher.topics[i] != topic {
			t.Fatalf("topic %d: expected %s, got %s", i, topic, publisher.topics[i])
		}
	}

	count, err = relay.RunOnce(context.Background())
	if err != nil || count != 0 {
		t.Fatalf("expected empty second cycle, got %d err=%v", count, err)
	}
}

func TestOutboxRelayStopsAtFirstFailure(t *testing.T) {
	store := memory.NewStore()
	seedCommands(t, store)
	publisher := &recordingPublisher{failAt: 2}
	relay := OutboxRelay{Outbox: store, Publisher: publisher, Clock: store}

	count, err := relay.RunOnce(context.Background())
	if err == nil {
		t.Fatalf("expected publish failure")
	}
	if count != 1 {
		t.Fatalf("expected one row published before failure, got %d", count)
	}
	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 rows left for retry, got %d", len(pending))
	}

	publisher.failAt = 0
	if count, err := relay.RunOnce(context.Background()); err != nil || count != 3 {
		t.Fatalf("expected retry to publish remaining rows, got %d err=%v", count, err)
	}
}

func TestAuditConsumerDeduplicates(t *testing.T) {
	subscriber := &recordingSubscriber{}
	consumer := &AuditConsumer{Subscriber: subscriber, Topics: commands.EventTypes()}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(subscriber.handlers) != len(commands.EventTypes()) {
		t.Fatalf("expected one subscription per topic, got %d", len(subscriber.handlers))
	}

	handler := subscriber.handlers[commands.EventVoteCast]
	event := ports.EventEnvelope{EventID: "evt-1", EventType: commands.EventVoteCast, SourceService: "election-ledger", SchemaVersion: 1}
	for i := 0; i < 3; i++ {
		if err := handler(context.Background(), event); err != nil {
			t.Fatalf("handle: %v", err)
		}
	}
	foreign := ports.EventEnvelope{EventID: "evt-2", EventType: commands.EventVoteCast, SourceService: "billing", SchemaVersion: 1}
	if err := handler(context.Background(), foreign); err != nil {
		t.Fatalf("handle foreign: %v", err)
	}
	if err := handler(context.Background(), ports.EventEnvelope{EventID: "evt-3"}); err == nil {
		t.Fatal("expected invalid envelope error")
	}
	if consumer.Recorded() != 1 {
		t.Fatalf("expected one recorded event, got %d", consumer.Recorded())
	}
}
