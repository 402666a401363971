package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger-core/internal/ledger"
	"ledger-core/internal/worker/tasks"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Queue: "default", Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestClientNotifyReviewed(t *testing.T) {
	q := &fakeEnqueuer{}
	c := &Client{client: q}

	rec := ledger.LedgerRecord{ID: 5, Source: ledger.SourceRecharge, UserID: 2, Asset: "BTC", Status: ledger.StatusCompleted}
	require.NoError(t, c.NotifyReviewed(context.Background(), rec))
	require.Len(t, q.tasks, 1)
	assert.Equal(t, tasks.TypeReviewNotify, q.tasks[0].Type())

	q.err = errors.New("redis down")
	assert.Error(t, c.NotifyReviewed(context.Background(), rec))
	require.NoError(t, c.Close())
}
