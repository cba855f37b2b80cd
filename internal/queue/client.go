// Package queue moves settlement recalculation requests through RabbitMQ so
// expense writes don't wait on the recalculation.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/mmynk/splitledger/internal/metrics"
)

// ErrPermanent marks a handler failure that retrying cannot fix. Such
// messages are dropped instead of requeued.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so the consumer drops the message.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Handler processes one recalculation request.
type Handler func(ctx context.Context, msg *RecalculateMessage) error

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	// one unacked message at a time per worker
	if err := c.channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	return nil
}

// PublishRecalculate enqueues a recalculation of groupID.
func (c *Client) PublishRecalculate(ctx context.Context, groupID, reason string) error {
	body, err := NewRecalculateMessage(groupID, reason).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		metrics.QueueMessages.WithLabelValues("publish", metrics.ResultError).Inc()
		return fmt.Errorf("publish message: %w", err)
	}
	metrics.QueueMessages.WithLabelValues("publish", metrics.ResultOK).Inc()

	slog.DebugContext(ctx, "Published recalculation request",
		"group_id", groupID,
		"reason", reason,
		"queue", c.queueName)
	return nil
}

// TriggerRecalculation publishes instead of recalculating inline.
func (c *Client) TriggerRecalculation(ctx context.Context, groupID, reason string) error {
	return c.PublishRecalculate(ctx, groupID, reason)
}

// ConsumeRecalculate delivers messages to handler until ctx is cancelled or
// the channel closes.
func (c *Client) ConsumeRecalculate(ctx context.Context, handler Handler) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming recalculation requests", "queue", c.queueName)

	failures := 0
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			if process(ctx, delivery, handler, requeueDelay(failures)) == outcomeRequeued {
				failures++
			} else {
				failures = 0
			}
		}
	}
}

// outcome of handling one delivery, used as the metrics label
const (
	outcomeAcked    = "acked"
	outcomeDropped  = "dropped"
	outcomeRequeued = "requeued"
)

// requeueDelay is how long a failed delivery is held before it is requeued:
// one second, doubling with each consecutive failure, capped at 30s.
func requeueDelay(failures int) time.Duration {
	if failures >= 5 {
		return 30 * time.Second
	}
	return time.Second << failures
}

// process acks on success, drops undecodable messages and permanent
// failures, and requeues everything else after holding it for delay. With a
// prefetch of one nothing else is delivered in the meantime.
func process(ctx context.Context, delivery amqp091.Delivery, handler Handler, delay time.Duration) string {
	msg, err := RecalculateMessageFromJSON(delivery.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		return settle(ctx, delivery, outcomeDropped)
	}

	slog.InfoContext(ctx, "Processing recalculation request",
		"group_id", msg.GroupID,
		"reason", msg.Reason)

	if err := handler(ctx, msg); err != nil {
		outcome := outcomeRequeued
		if errors.Is(err, ErrPermanent) {
			outcome = outcomeDropped
		}
		slog.ErrorContext(ctx, "Failed to handle message",
			"error", err,
			"group_id", msg.GroupID,
			"outcome", outcome)
		if outcome == outcomeRequeued {
			wait(ctx, delay)
		}
		return settle(ctx, delivery, outcome)
	}
	return settle(ctx, delivery, outcomeAcked)
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

func settle(ctx context.Context, delivery amqp091.Delivery, outcome string) string {
	var err error
	switch outcome {
	case outcomeAcked:
		err = delivery.Ack(false)
	case outcomeDropped:
		err = delivery.Nack(false, false)
	default:
		err = delivery.Nack(false, true)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to settle delivery", "outcome", outcome, "error", err)
	}
	metrics.QueueMessages.WithLabelValues("consume", outcome).Inc()
	return outcome
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
