// Package mirror forwards committed change records to a RabbitMQ
// topic exchange so out-of-process consumers can follow the event
// stream without holding a broker subscription. The mirror is a
// best-effort sink: it never blocks or fails a mutation.
package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/0ppliger/oam-broker/internal/util"
	"github.com/0ppliger/oam-broker/pkg/broker"
	"github.com/0ppliger/oam-broker/pkg/logger"
)

const (
	exchange     = "oam_events"
	buffer       = 1024
	dialAttempts = 5
)

// Mirror is a broker.Sink backed by an AMQP topic exchange. Records
// are published with the action kind as routing key, so consumers bind
// to exactly the slice of the taxonomy they care about (for example
// "entity_*" or "#").
type Mirror struct {
	url     string
	conn    *amqp091.Connection
	ch      *amqp091.Channel
	batches chan []broker.ChangeRecord
	done    chan struct{}
}

// Init connects to RabbitMQ using the RABBITMQ_* environment
// variables, declares the exchange, and starts the publish pump.
func Init(ctx context.Context) (*Mirror, error) {
	url := fmt.Sprintf(
		"amqp://%s:%s@%s:%s/",
		util.GetEnv("RABBITMQ_USER"),
		util.GetEnv("RABBITMQ_PASSWORD"),
		util.GetEnv("RABBITMQ_HOST"),
		util.GetEnv("RABBITMQ_PORT"),
	)

	m := &Mirror{
		url:     url,
		batches: make(chan []broker.ChangeRecord, buffer),
		done:    make(chan struct{}),
	}
	if err := m.connect(ctx); err != nil {
		return nil, err
	}

	go m.run(ctx)
	return m, nil
}

func (m *Mirror) connect(ctx context.Context) error {
	conn, err := util.RetryWithContext(ctx, dialAttempts, func(context.Context) (*amqp091.Connection, error) {
		return amqp091.Dial(m.url)
	})
	if err != nil {
		return fmt.Errorf("connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	err = ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
	if err != nil {
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	m.conn = conn
	m.ch = ch
	return nil
}

// CommitBatch enqueues a batch without blocking; full buffers drop the
// batch with a warning.
func (m *Mirror) CommitBatch(recs []broker.ChangeRecord) {
	select {
	case m.batches <- recs:
	default:
		logger.Warn("Event mirror buffer full, dropping batch", "records", len(recs))
	}
}

// Wait blocks until the publish pump has exited.
func (m *Mirror) Wait() {
	<-m.done
}

// Close tears down the AMQP connection.
func (m *Mirror) Close() {
	if m.conn != nil {
		m.conn.Close()
	}
}

func (m *Mirror) run(ctx context.Context) {
	defer close(m.done)
	for {
		select {
		case recs := <-m.batches:
			for _, rec := range recs {
				if err := m.publish(ctx, rec); err != nil {
					logger.Error("Failed to mirror event", "seq", rec.Seq, "action", rec.Action, "err", err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Mirror) publish(ctx context.Context, rec broker.ChangeRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	publishing := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		MessageId:    fmt.Sprintf("%d", rec.Seq),
	}

	err = m.ch.Publish(exchange, string(rec.Action), false, false, publishing)
	if err == nil {
		return nil
	}

	// One reconnect attempt; the broker connection may have dropped.
	logger.Warn("Mirror publish failed, reconnecting", "err", err)
	if err := m.connect(ctx); err != nil {
		return err
	}
	return m.ch.Publish(exchange, string(rec.Action), false, false, publishing)
}
