package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedMessage struct {
	topic, key string
	payload    []byte
}

type fakeProducer struct {
	mu   sync.Mutex
	sent []publishedMessage
	fail bool
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, publishedMessage{topic: topic, key: key, payload: payload})
	return nil
}

func TestRelayProcessPending(t *testing.T) {
	f := newFixture(t)
	f.fund(1, "USDT", "100")
	f.fund(2, "USDT", "100")
	submitWithdrawal(t, f, 1, "10")
	submitWithdrawal(t, f, 2, "10")

	producer := &fakeProducer{fail: true}
	relay := NewRelayService(f.store, producer, 0)
	ctx := context.Background()

	// 发送失败的消息保持待发送，下一轮重试
	assert.Equal(t, 0, relay.ProcessPending(ctx))
	assert.Len(t, f.pendingOutbox(t), 2)

	producer.fail = false
	assert.Equal(t, 2, relay.ProcessPending(ctx))
	assert.Empty(t, f.pendingOutbox(t))
	require.Len(t, producer.sent, 2)
	assert.Equal(t, DefaultEventsTopic, producer.sent[0].topic)
	assert.Equal(t, "1", producer.sent[0].key)
	assert.Equal(t, "2", producer.sent[1].key)

	assert.Equal(t, 0, relay.ProcessPending(ctx))
	assert.Len(t, producer.sent, 2)
}
