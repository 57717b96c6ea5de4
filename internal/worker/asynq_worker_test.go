package worker

import (
	"context"
	"testing"

	"github.com/craftkart/api/internal/config"
	"github.com/craftkart/api/internal/provider"

	"github.com/hibiken/asynq"
)

func TestNewServiceQueueDisabled(t *testing.T) {
	if _, err := NewService(&config.QueueConfig{Enabled: false}, NewConsumer(&provider.Container{})); err == nil {
		t.Fatalf("expected error when queue is disabled")
	}
	if _, err := NewService(nil, NewConsumer(&provider.Container{})); err == nil {
		t.Fatalf("expected error for nil config")
	}
}

func TestHandleOrderTimeoutCancelInvalidPayload(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask("order:timeout_cancel", []byte("{not json"))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err == nil {
		t.Fatalf("expected unmarshal error for malformed payload")
	}
}

func TestHandleOrderTimeoutCancelSkipsZeroOrderID(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask("order:timeout_cancel", []byte(`{"order_id":0}`))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("expected zero order id to be skipped, got %v", err)
	}
}

func TestHandleOrderTimeoutCancelSkipsNilService(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask("order:timeout_cancel", []byte(`{"order_id":42}`))
	if err := consumer.handleOrderTimeoutCancel(context.Background(), task); err != nil {
		t.Fatalf("expected nil order service to be skipped, got %v", err)
	}
}

func TestHandlePhonepeStatusPollSkips(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask("payment:phonepe_status", []byte(`{"payment_id":0}`))
	if err := consumer.handlePhonepeStatusPoll(context.Background(), task); err != nil {
		t.Fatalf("expected zero payment id to be skipped, got %v", err)
	}

	task = asynq.NewTask("payment:phonepe_status", []byte(`{"payment_id":7}`))
	if err := consumer.handlePhonepeStatusPoll(context.Background(), task); err != nil {
		t.Fatalf("expected nil payment service to be skipped, got %v", err)
	}
}

func TestHandleDiscountUsageSyncSkips(t *testing.T) {
	consumer := NewConsumer(&provider.Container{})

	task := asynq.NewTask("discount:usage_reconcile", []byte(`{"discount_id":0}`))
	if err := consumer.handleDiscountUsageSync(context.Background(), task); err != nil {
		t.Fatalf("expected zero discount id to be skipped, got %v", err)
	}

	task = asynq.NewTask("discount:usage_reconcile", []byte(`{"discount_id":3}`))
	if err := consumer.handleDiscountUsageSync(context.Background(), task); err != nil {
		t.Fatalf("expected nil admin service to be skipped, got %v", err)
	}
}
