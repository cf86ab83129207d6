// Package outbox publishes persisted notification events to Kafka. Events are
// written next to the durable change that caused them and drained here, so the
// commit path never blocks on the broker.
package outbox

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/GSPA2001/proyectoFinal-backEnd-ParedesAlvarez/internal/repository"
)

// EventSource drains pending events from the store.
type EventSource interface {
	GetUnpublishedEvents(ctx context.Context, limit int) ([]repository.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, id int64) error
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Poller struct {
	tick      time.Duration
	batchSize int
	source    EventSource
	writer    MessageWriter
}

func NewPoller(source EventSource, writer MessageWriter) *Poller {
	return &Poller{
		tick:      time.Second,
		batchSize: 100,
		source:    source,
		writer:    writer,
	}
}

// NewKafkaWriter builds the writer the poller publishes through.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.drain(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drain publishes one batch. An event is only marked published after the
// broker accepted it; a crash in between means at-least-once delivery, which
// notification consumers must tolerate.
func (p *Poller) drain(ctx context.Context) {
	events, err := p.source.GetUnpublishedEvents(ctx, p.batchSize)
	if err != nil {
		log.Printf("failed to fetch outbox events: %v", err)
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			log.Printf("failed to publish event id = %v with error %v", event.ID, err)
			continue
		}

		if err := p.source.MarkEventPublished(ctx, event.ID); err != nil {
			log.Printf("failed to mark event as published id = %v with error %v", event.ID, err)
			continue
		}
	}
}

func (p *Poller) publish(ctx context.Context, event repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ID, 10)),
		Value: event.Payload, // already JSON from the database
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}

	return p.writer.WriteMessages(ctx, msg)
}
