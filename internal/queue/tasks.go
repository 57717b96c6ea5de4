package queue

import (
	"encoding/json"

	"github.com/craftkart/api/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderTimeoutCancel 订单超时取消任务
	TaskOrderTimeoutCancel = constants.TaskOrderTimeoutCancel
	// TaskPhonepeStatusPoll PhonePe 支付状态轮询任务
	TaskPhonepeStatusPoll = constants.TaskPhonepeStatusPoll
	// TaskDiscountUsageSync 折扣使用计数对账任务
	TaskDiscountUsageSync = constants.TaskDiscountUsageSync
)

// OrderTimeoutCancelPayload 超时取消任务载荷
type OrderTimeoutCancelPayload struct {
	OrderID uint `json:"order_id"`
}

// PhonepeStatusPollPayload 支付状态轮询任务载荷
type PhonepeStatusPollPayload struct {
	PaymentID uint `json:"payment_id"`
}

// DiscountUsageSyncPayload 折扣使用计数对账任务载荷
type DiscountUsageSyncPayload struct {
	DiscountID uint `json:"discount_id"`
}

// NewOrderTimeoutCancelTask 创建超时取消任务
func NewOrderTimeoutCancelTask(payload OrderTimeoutCancelPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderTimeoutCancel, body), nil
}

// NewPhonepeStatusPollTask 创建支付状态轮询任务
func NewPhonepeStatusPollTask(payload PhonepeStatusPollPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPhonepeStatusPoll, body), nil
}

// NewDiscountUsageSyncTask 创建折扣使用计数对账任务
func NewDiscountUsageSyncTask(payload DiscountUsageSyncPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDiscountUsageSync, body), nil
}
