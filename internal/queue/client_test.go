package queue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// fakeAcknowledger records how a delivery was settled.
type fakeAcknowledger struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	f.acked = true
	return nil
}

func (f *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func (f *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestProcess(t *testing.T) {
	valid, err := NewRecalculateMessage("group-1", "expense_created").ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		want        string
		wantAck     bool
		wantRequeue bool
	}{
		{name: "success", body: valid, want: outcomeAcked, wantAck: true},
		{name: "transient failure", body: valid, handlerErr: errors.New("database is locked"), want: outcomeRequeued, wantRequeue: true},
		{name: "permanent failure", body: valid, handlerErr: Permanent(errors.New("group gone")), want: outcomeDropped},
		{name: "invalid JSON", body: []byte("not json"), want: outcomeDropped},
		{name: "missing group", body: []byte(`{"reason":"x"}`), want: outcomeDropped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAcknowledger{}
			delivery := amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: tt.body}

			var called *RecalculateMessage
			handler := func(ctx context.Context, msg *RecalculateMessage) error {
				called = msg
				return tt.handlerErr
			}

			got := process(context.Background(), delivery, handler, 0)
			if got != tt.want {
				t.Errorf("process() = %q, want %q", got, tt.want)
			}
			if ack.acked != tt.wantAck {
				t.Errorf("acked = %v, want %v", ack.acked, tt.wantAck)
			}
			if !tt.wantAck && !ack.nacked {
				t.Error("expected delivery to be nacked")
			}
			if ack.requeue != tt.wantRequeue {
				t.Errorf("requeue = %v, want %v", ack.requeue, tt.wantRequeue)
			}
			if tt.want != outcomeDropped || tt.handlerErr != nil {
				if called == nil || called.GroupID != "group-1" {
					t.Errorf("handler got %+v", called)
				}
			}
		})
	}
}

func TestProcess_HoldsFailedDeliveryBeforeRequeue(t *testing.T) {
	body, err := NewRecalculateMessage("group-1", "expense_created").ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	failing := func(ctx context.Context, msg *RecalculateMessage) error {
		return errors.New("database is locked")
	}
	const delay = 50 * time.Millisecond

	t.Run("waits before requeue", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		start := time.Now()
		got := process(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: body}, failing, delay)
		if got != outcomeRequeued || !ack.requeue {
			t.Fatalf("process() = %q, requeue = %v", got, ack.requeue)
		}
		if elapsed := time.Since(start); elapsed < delay {
			t.Errorf("requeued after %v, want at least %v", elapsed, delay)
		}
	})

	t.Run("cancelled context requeues at once", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		ack := &fakeAcknowledger{}
		start := time.Now()
		got := process(ctx, amqp091.Delivery{Acknowledger: ack, Body: body}, failing, time.Minute)
		if got != outcomeRequeued || !ack.requeue {
			t.Fatalf("process() = %q, requeue = %v", got, ack.requeue)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("cancelled requeue took %v", elapsed)
		}
	})

	t.Run("permanent failures are not held", func(t *testing.T) {
		ack := &fakeAcknowledger{}
		start := time.Now()
		permanent := func(ctx context.Context, msg *RecalculateMessage) error {
			return Permanent(errors.New("group gone"))
		}
		if got := process(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: body}, permanent, time.Minute); got != outcomeDropped {
			t.Fatalf("process() = %q, want %q", got, outcomeDropped)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("dropped delivery took %v", elapsed)
		}
	})
}

func TestRequeueDelay(t *testing.T) {
	tests := []struct {
		failures int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("failures_%d", tt.failures), func(t *testing.T) {
			if got := requeueDelay(tt.failures); got != tt.expected {
				t.Errorf("requeueDelay(%d) = %v, want %v", tt.failures, got, tt.expected)
			}
		})
	}
}

func TestPermanent(t *testing.T) {
	cause := errors.New("group gone")
	err := Permanent(cause)
	if !errors.Is(err, ErrPermanent) || !errors.Is(err, cause) {
		t.Errorf("Permanent(%v) = %v, should wrap both", cause, err)
	}
}

func TestRecalculateMessage_JSON(t *testing.T) {
	msg := NewRecalculateMessage("group-1", "expense_deleted")
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
	got, err := RecalculateMessageFromJSON(data)
	if err != nil {
		t.Fatalf("RecalculateMessageFromJSON failed: %v", err)
	}
	if got.GroupID != msg.GroupID || got.Reason != msg.Reason || !got.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("got %+v, want %+v", got, msg)
	}
}
