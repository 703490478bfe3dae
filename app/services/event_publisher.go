package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/rotalink/config"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ErrPublisherClosed is returned by Publish after Close
var ErrPublisherClosed = errors.New("visit event publisher is closed")

var visitEvents = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "rotalink",
		Name:      "visit_events_total",
		Help:      "Visit events handed to the broker by result",
	},
	[]string{"result"},
)

// VisitEvent is published after a visit has been committed
type VisitEvent struct {
	Type         string    `json:"type"`
	VisitUUID    uuid.UUID `json:"visit_uuid"`
	CampaignSlug string    `json:"campaign_slug"`
	OperatorUUID uuid.UUID `json:"operator_uuid"`
	Device       string    `json:"device"`
	Location     string    `json:"location"`
	CycleReset   bool      `json:"cycle_reset"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// VisitEventType is the Type of every VisitEvent
const VisitEventType = "visit.recorded"

// VisitEventPublisher hands committed visits to downstream consumers.
// Publish never blocks on the broker; delivery is best effort.
type VisitEventPublisher interface {
	Publish(ctx context.Context, event VisitEvent) error
	Close() error
}

// NoopVisitPublisher drops every event
type NoopVisitPublisher struct{}

func (NoopVisitPublisher) Publish(context.Context, VisitEvent) error { return nil }
func (NoopVisitPublisher) Close() error                              { return nil }

// AMQPVisitPublisher publishes visit events to a durable RabbitMQ queue from a background worker
type AMQPVisitPublisher struct {
	url    string
	queue  string
	logger *zap.Logger

	events chan VisitEvent
	done   chan struct{}

	mu     sync.Mutex
	closed bool
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// NewAMQPVisitPublisher declares the queue and starts the publishing worker
func NewAMQPVisitPublisher(cfg *config.EventsConfig, logger *zap.Logger) (*AMQPVisitPublisher, error) {
	p := &AMQPVisitPublisher{
		url:    cfg.AMQPURL,
		queue:  cfg.Queue,
		logger: logger,
		events: make(chan VisitEvent, 1024),
		done:   make(chan struct{}),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	go p.run()
	return p, nil
}

func (p *AMQPVisitPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open broker channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue %s: %w", p.queue, err)
	}
	p.conn, p.ch = conn, ch
	return nil
}

func (p *AMQPVisitPublisher) disconnect() {
	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}

// Publish enqueues the event; it is dropped when the buffer is full
func (p *AMQPVisitPublisher) Publish(ctx context.Context, event VisitEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}

	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		visitEvents.WithLabelValues("dropped").Inc()
		return fmt.Errorf("visit event buffer full, dropped %s", event.VisitUUID)
	}
}

func (p *AMQPVisitPublisher) run() {
	defer close(p.done)
	for event := range p.events {
		if err := p.send(event); err != nil {
			visitEvents.WithLabelValues("failed").Inc()
			p.logger.Warn("Failed to publish visit event",
				zap.String("visit_uuid", event.VisitUUID.String()),
				zap.Error(err))
			continue
		}
		visitEvents.WithLabelValues("published").Inc()
	}
	p.disconnect()
}

func (p *AMQPVisitPublisher) send(event VisitEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if p.ch == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}

	err = p.ch.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.VisitUUID.String(),
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		// Reconnect on the next event
		p.disconnect()
		return err
	}
	return nil
}

// Close stops accepting events, flushes the buffer and closes the broker connection
func (p *AMQPVisitPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.done
	return nil
}
