package messaging

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"electionkeeper/contexts/governance/election-ledger/ports"
)

var ErrBusClosed = errors.New("event bus closed")

type subscription struct {
	topic         string
	consumerGroup string
	ch            chan ports.EventEnvelope
	stop          chan struct{}
	stopOnce      sync.Once
}

func (s *subscription) cancel() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Kafka is the event bus adapter used by the outbox relay and the audit
// consumer. Delivery is in-process: each consumer group on a topic gets its
// own buffered queue, and publishing blocks while a queue is full so that a
// relay cycle never marks an undelivered row as published.
type Kafka struct {
	mu       sync.RWMutex
	brokers  []string
	groups   map[string]map[string]*subscription
	done     chan struct{}
	doneOnce sync.Once
	buffer   int
	logger   *slog.Logger
	handlers sync.WaitGroup
}

func NewKafka(brokers []string, logger *slog.Logger) (*Kafka, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return &Kafka{
		brokers: append([]string(nil), brokers...),
		groups:  make(map[string]map[string]*subscription),
		done:    make(chan struct{}),
		buffer:  128,
		logger:  logger,
	}, nil
}

func (k *Kafka) Brokers() []string {
	return append([]string(nil), k.brokers...)
}

func (k *Kafka) Publish(ctx context.Context, topic string, event ports.EventEnvelope) error {
	if k.isClosed() {
		return ErrBusClosed
	}
	k.mu.RLock()
	subs := make([]*subscription, 0, len(k.groups[topic]))
	for _, sub := range k.groups[topic] {
		subs = append(subs, sub)
	}
	k.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-k.done:
			return ErrBusClosed
		case <-sub.stop:
		case sub.ch <- event:
		}
	}

	k.logger.Debug("event published",
		"event", "kafka_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
		"consumer_groups", len(subs),
	)
	return nil
}

// Subscribe registers handler for topic under consumerGroup. Handlers that
// share a group compete for one queue, so each event reaches the group once.
func (k *Kafka) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler func(context.Context, ports.EventEnvelope) error,
) error {
	topic = strings.TrimSpace(topic)
	consumerGroup = strings.TrimSpace(consumerGroup)
	if topic == "" || consumerGroup == "" {
		return errors.New("topic and consumer group are required")
	}

	if k.isClosed() {
		return ErrBusClosed
	}
	k.mu.Lock()
	if k.groups[topic] == nil {
		k.groups[topic] = make(map[string]*subscription)
	}
	sub, exists := k.groups[topic][consumerGroup]
	if !exists {
		sub = &subscription{
			topic:         topic,
			consumerGroup: consumerGroup,
			ch:            make(chan ports.EventEnvelope, k.buffer),
			stop:          make(chan struct{}),
		}
		k.groups[topic][consumerGroup] = sub
	}
	k.mu.Unlock()

	k.handlers.Add(1)
	go func() {
		defer k.handlers.Done()
		for {
			select {
			case <-ctx.Done():
				k.removeSubscription(sub)
				return
			case <-k.done:
				return
			case <-sub.stop:
				return
			case event := <-sub.ch:
				if err := handler(ctx, event); err != nil {
					k.logger.Error("consumer handler failed",
						"event", "kafka_consume_failed",
						"module", "internal/platform/messaging",
						"layer", "platform",
						"topic", topic,
						"consumer_group", consumerGroup,
						"event_id", event.EventID,
						"event_type", event.EventType,
						"error", err.Error(),
					)
				}
			}
		}
	}()
	return nil
}

// Close stops delivery and waits for running handlers to return.
func (k *Kafka) Close() error {
	k.doneOnce.Do(func() { close(k.done) })
	k.handlers.Wait()
	return nil
}

func (k *Kafka) isClosed() bool {
	select {
	case <-k.done:
		return true
	default:
		return false
	}
}

func (k *Kafka) removeSubscription(target *subscription) {
	k.mu.Lock()
	defer k.mu.Unlock()

	subs := k.groups[target.topic]
	if subs[target.consumerGroup] == target {
		delete(subs, target.consumerGroup)
	}
	target.cancel()
}

var _ ports.EventPublisher = (*Kafka)(nil)
var _ ports.EventSubscriber = (*Kafka)(nil)
