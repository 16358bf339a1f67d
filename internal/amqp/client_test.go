package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"

	"goaltrack/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{40, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"closed sentinel", fmt.Errorf("consume: %w", amqp091.ErrClosed), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other error", errors.New("access refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	if client.isCircuitOpen() {
		t.Fatal("circuit breaker should be closed initially")
	}

	for i := 0; i < maxFailures; i++ {
		client.recordFailure()
	}
	if !client.isCircuitOpen() {
		t.Fatal("circuit breaker should open after max failures")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() || atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatal("circuit should be half-open after the timeout")
	}

	client.recordFailure()
	if atomic.LoadInt32(&client.state) != StateOpen {
		t.Fatal("a failure while half-open should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}
	msg := NewLedgerUpdatedMessage(core.Transaction{Month: core.NewMonth(2025, 1), Category: core.Savings, Amount: decimal.NewFromInt(1)})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishLedgerUpdated(ctx, msg); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	if err := client.PublishLedgerUpdated(context.Background(), msg); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked++; return nil }
func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}
func (f *fakeAck) Reject(uint64, bool) error { return nil }

func TestHandleDelivery(t *testing.T) {
	good, _ := NewLedgerUpdatedMessage(core.Transaction{Month: core.NewMonth(2025, 3), Category: core.Income, Amount: decimal.NewFromInt(5)}).ToJSON()

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAck
	}{
		{name: "processed", body: good, want: fakeAck{acked: 1}},
		{name: "handler failure requeues", body: good, handlerErr: errors.New("sheets down"), want: fakeAck{nacked: 1, requeued: 1}},
		{name: "garbage is dropped", body: []byte("{"), want: fakeAck{nacked: 1}},
		{name: "missing id is dropped", body: []byte(`{"month":"2025-01-01"}`), want: fakeAck{nacked: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			var seen *LedgerUpdatedMessage
			handleDelivery(context.Background(), amqp091.Delivery{Acknowledger: ack, Body: tt.body}, func(_ context.Context, m *LedgerUpdatedMessage) error {
				seen = m
				return tt.handlerErr
			})
			if *ack != tt.want {
				t.Fatalf("got %+v, want %+v", *ack, tt.want)
			}
			if tt.want.acked == 1 && (seen == nil || seen.Category != "income" || seen.Month != "2025-03-01") {
				t.Fatalf("unexpected message %+v", seen)
			}
		})
	}
}

func TestLedgerUpdatedMessage_JSON(t *testing.T) {
	msg := NewLedgerUpdatedMessage(core.Transaction{Month: core.NewMonth(2025, 2), Category: core.Savings, Amount: decimal.RequireFromString("100.50")})
	if len(msg.ID) != 36 {
		t.Fatalf("expected a UUID id, got %q", msg.ID)
	}
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"amount":"100.5"`) {
		t.Fatalf("amount should be a decimal string: %s", data)
	}
	back, err := LedgerUpdatedMessageFromJSON(data)
	if err != nil || back.ID != msg.ID || back.Amount != "100.5" {
		t.Fatalf("unexpected decode %+v err=%v", back, err)
	}
}
