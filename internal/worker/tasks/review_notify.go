package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ledger-core/internal/ledger"
	"ledger-core/pkg/logger"
)

// 任务类型常量
const (
	TypeReviewNotify = "ledger:review_notify"
)

// ReviewNotifyPayload 审核结果通知参数
type ReviewNotifyPayload struct {
	Source          string `json:"source"`
	RecordID        uint64 `json:"record_id"`
	UserID          uint64 `json:"user_id"`
	Asset           string `json:"asset"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// ---------------------------------------------------------------------
// Producer
// ---------------------------------------------------------------------

// NewReviewNotifyTask 审核完成后通知用户
func NewReviewNotifyTask(rec ledger.LedgerRecord) (*asynq.Task, error) {
	payload, err := json.Marshal(ReviewNotifyPayload{
		Source:          string(rec.Source),
		RecordID:        rec.ID,
		UserID:          rec.UserID,
		Asset:           rec.Asset,
		Amount:          rec.Amount.String(),
		Status:          string(rec.Status),
		RejectionReason: rec.RejectionReason,
	})
	if err != nil {
		return nil, err
	}
	// 通知不是关键路径: 5 分钟超时，最多重试 5 次
	return asynq.NewTask(TypeReviewNotify, payload, asynq.MaxRetry(5), asynq.Timeout(5*time.Minute)), nil
}

// ---------------------------------------------------------------------
// Consumer
// ---------------------------------------------------------------------

// DeliverFunc 真正把通知发给用户 (站内信 / 邮件 / 推送)
type DeliverFunc func(ctx context.Context, p ReviewNotifyPayload) error

// NewReviewNotifyHandler deliver 为 nil 时只记录日志
func NewReviewNotifyHandler(deliver DeliverFunc) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p ReviewNotifyPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			// 重试也没用，直接进 Archived 队列
			return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
		}
		if p.UserID == 0 || p.RecordID == 0 {
			return fmt.Errorf("incomplete payload %+v: %w", p, asynq.SkipRetry)
		}

		if deliver != nil {
			if err := deliver(ctx, p); err != nil {
				return err
			}
		}
		logger.Info("审核结果已通知用户",
			zap.Uint64("user_id", p.UserID),
			zap.String("source", p.Source),
			zap.Uint64("record_id", p.RecordID),
			zap.String("status", p.Status),
		)
		return nil
	}
}
