package worker

import (
	"context"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"ledger-core/internal/ledger"
	"ledger-core/internal/worker/tasks"
	"ledger-core/pkg/logger"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client 封装 Asynq Client，同时实现 service.Notifier
type Client struct {
	client enqueuer
}

// NewClient addr: "localhost:6379"
func NewClient(addr string, password string, db int) *Client {
	c := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Client{client: c}
}

// NotifyReviewed 审核完成后投递通知任务，失败只返回错误不影响审核结果
func (c *Client) NotifyReviewed(ctx context.Context, rec ledger.LedgerRecord) error {
	task, err := tasks.NewReviewNotifyTask(rec)
	if err != nil {
		return err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue("default"))
	if err != nil {
		return err
	}
	logger.Debug("通知任务已入队", zap.String("task_id", info.ID), zap.Uint64("record_id", rec.ID))
	return nil
}

// Close 关闭客户端连接
func (c *Client) Close() error {
	return c.client.Close()
}
