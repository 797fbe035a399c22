package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"cowork/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func buildMessage(t *testing.T) Message {
	t.Helper()
	msg, err := NewMessage().
		WithKey("r-1").
		WithValue(map[string]string{"reservation_id": "r-1"}).
		WithEventType("reservation.created").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return msg
}

func TestMessageBuilder(t *testing.T) {
	msg := buildMessage(t)

	if msg.GetEventID() == "" {
		t.Errorf("event id should be generated")
	}
	if msg.GetEventType() != "reservation.created" {
		t.Errorf("event type = %q", msg.GetEventType())
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Errorf("timestamp header should be set")
	}

	if _, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build(); err == nil {
		t.Errorf("Build() should report an unencodable value")
	}
}

func TestMessage_RetryCount(t *testing.T) {
	msg := buildMessage(t)
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if msg.GetRetryCount() != 12 {
		t.Errorf("GetRetryCount() = %d, want 12", msg.GetRetryCount())
	}
}

func TestProducer_PublishValidation(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, topic: "t", log: logger.Discard()}

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), buildMessage(t)); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "t", log: logger.Discard()}

	var order []string
	for _, name := range []string{"outer", "inner"} {
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}

	if err := p.Publish(context.Background(), buildMessage(t)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("middleware order = %v", order)
	}
	if len(w.messages) != 1 {
		t.Errorf("expected 1 written message, got %d", len(w.messages))
	}
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	p := &Producer{
		writer:    &fakeWriter{err: errors.New("connection refused")},
		dlqWriter: dlq,
		topic:     "cowork.reservations",
		log:       logger.Discard(),
	}

	err := p.Publish(context.Background(), buildMessage(t))
	if err == nil {
		t.Fatalf("Publish() should return the original error")
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected message in DLQ, got %d", len(dlq.messages))
	}
	if got := header(dlq.messages[0], HeaderOriginalTopic); got != "cowork.reservations" {
		t.Errorf("original-topic header = %q", got)
	}
}

func TestConsumer_RetriesTransientThenSucceeds(t *testing.T) {
	attempts := 0
	c := &Consumer{
		topic:        "t",
		maxRetries:   3,
		retryBackoff: time.Millisecond,
		log:          logger.Discard(),
		handler: func(ctx context.Context, msg Message) error {
			attempts++
			if attempts < 3 {
				return NewTransientError("store unavailable", nil)
			}
			return nil
		},
	}

	if err := c.processMessage(context.Background(), buildMessage(t)); err != nil {
		t.Fatalf("processMessage() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	dlq := &fakeWriter{}
	attempts := 0
	c := &Consumer{
		topic:        "t",
		groupID:      "billing",
		maxRetries:   3,
		retryBackoff: time.Millisecond,
		dlqWriter:    dlq,
		log:          logger.Discard(),
		handler: func(ctx context.Context, msg Message) error {
			attempts++
			return NewPermanentError("bad payload", nil)
		},
	}

	if err := c.processMessage(context.Background(), buildMessage(t)); err == nil {
		t.Fatalf("expected error")
	}
	if attempts != 1 {
		t.Errorf("permanent errors must not be retried, attempts = %d", attempts)
	}
	if len(dlq.messages) != 1 || header(dlq.messages[0], "dlq-consumer-group") != "billing" {
		t.Errorf("expected one DLQ message tagged with the group")
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorType
	}{
		{nil, ErrorTypeUnknown},
		{errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{errors.New("i/o timeout"), ErrorTypeTransient},
		{errors.New("json: cannot unmarshal"), ErrorTypePermanent},
		{NewBusinessError("invoice already paid", nil), ErrorTypeBusiness},
	}
	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.want {
			t.Errorf("ClassifyError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
