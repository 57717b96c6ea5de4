package worker

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/craftkart/api/internal/logger"
	"github.com/craftkart/api/internal/provider"
	"github.com/craftkart/api/internal/queue"
	"github.com/craftkart/api/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderTimeoutCancel, c.handleOrderTimeoutCancel)
	mux.HandleFunc(queue.TaskPhonepeStatusPoll, c.handlePhonepeStatusPoll)
	mux.HandleFunc(queue.TaskDiscountUsageSync, c.handleDiscountUsageSync)
}

func (c *Consumer) handleOrderTimeoutCancel(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_timeout_cancel_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderTimeoutCancelPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_timeout_cancel_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_timeout_cancel_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_timeout_cancel_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	if err := c.OrderService.CancelExpiredOrder(payload.OrderID); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			logger.Debugw("worker_order_timeout_cancel_skip_order_not_found", "order_id", payload.OrderID)
			return nil
		case errors.Is(err, service.ErrOrderUpdateFailed):
			logger.Warnw("worker_order_timeout_cancel_update_failed", "order_id", payload.OrderID, "error", err)
			return err
		default:
			logger.Warnw("worker_order_timeout_cancel_failed", "order_id", payload.OrderID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handlePhonepeStatusPoll(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_phonepe_status_poll_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.PhonepeStatusPollPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_phonepe_status_poll_unmarshal_failed", "error", err)
		return err
	}
	if payload.PaymentID == 0 {
		logger.Debugw("worker_phonepe_status_poll_skip_invalid_payload", "payment_id", payload.PaymentID)
		return nil
	}
	if c.PaymentService == nil {
		logger.Warnw("worker_phonepe_status_poll_skip_payment_service_nil", "payment_id", payload.PaymentID)
		return nil
	}
	if err := c.PaymentService.CheckPhonepeStatus(ctx, payload.PaymentID); err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentAmountMismatch):
			// 金额不一致须人工介入，重试不会改变结果
			logger.Errorw("worker_phonepe_status_poll_amount_mismatch", "payment_id", payload.PaymentID)
			return nil
		default:
			logger.Warnw("worker_phonepe_status_poll_failed", "payment_id", payload.PaymentID, "error", err)
			return err
		}
	}
	return nil
}

func (c *Consumer) handleDiscountUsageSync(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_discount_usage_sync_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.DiscountUsageSyncPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_discount_usage_sync_unmarshal_failed", "error", err)
		return err
	}
	if payload.DiscountID == 0 {
		logger.Debugw("worker_discount_usage_sync_skip_invalid_payload", "discount_id", payload.DiscountID)
		return nil
	}
	if c.DiscountAdminService == nil {
		logger.Warnw("worker_discount_usage_sync_skip_service_nil", "discount_id", payload.DiscountID)
		return nil
	}
	if err := c.DiscountAdminService.ReconcileUsage(payload.DiscountID); err != nil {
		switch {
		case errors.Is(err, service.ErrDiscountNotFound):
			logger.Debugw("worker_discount_usage_sync_skip_discount_not_found", "discount_id", payload.DiscountID)
			return nil
		default:
			logger.Warnw("worker_discount_usage_sync_failed", "discount_id", payload.DiscountID, "error", err)
			return err
		}
	}
	return nil
}
