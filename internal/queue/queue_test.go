package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unclebandit/nanis-backend/internal/config"
	"github.com/unclebandit/nanis-backend/internal/queue"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	q := queue.NewInMemoryQueue(zap.NewNop())
	assert.Error(t, q.Publish(context.Background(), "campaign_sends", 1))
}

func TestPublishRetriesUntilSuccess(t *testing.T) {
	q := queue.NewInMemoryQueue(zap.NewNop()).WithRetry(3, time.Millisecond)

	var calls int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), "t", "x"))
	q.Drain()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestPublishGivesUpAfterMaxRetries(t *testing.T) {
	q := queue.NewInMemoryQueue(zap.NewNop()).WithRetry(2, time.Millisecond)

	var calls int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("permanent")
	}))

	require.NoError(t, q.Publish(context.Background(), "t", "x"))
	q.Drain()

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendPipelineHandoff(t *testing.T) {
	q := queue.NewInMemoryQueue(zap.NewNop())

	var (
		mu  sync.Mutex
		got []queue.HandoffMessage
	)
	require.NoError(t, q.Subscribe(queue.DefaultHandoffTopic, func(payload any) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, payload.(queue.HandoffMessage))
		return nil
	}))

	p := queue.NewSendPipeline(q, "")
	msg := queue.HandoffMessage{CampaignID: uuid.New(), OrganizationID: uuid.New(), HandedOffAt: time.Now()}
	require.NoError(t, p.Handoff(context.Background(), msg))
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	assert.Equal(t, msg, got[0])
}

func TestSendPipelineHonoursCancellation(t *testing.T) {
	q := queue.NewInMemoryQueue(zap.NewNop())
	require.NoError(t, queue.StartHandoffLogger(q, queue.DefaultHandoffTopic, zap.NewNop()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := queue.NewSendPipeline(q, "").Handoff(ctx, queue.HandoffMessage{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublishCancelledContextDeliversNothing(t *testing.T) {
	q := queue.NewInMemoryQueue(zap.NewNop())

	var calls int32
	require.NoError(t, q.Subscribe("t", func(payload any) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, q.Publish(ctx, "t", "x"), context.Canceled)
	q.Drain()

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestOpenSendPipelineInMemory(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	p, closeFn, err := queue.OpenSendPipeline(config.AMQPConfig{}, zap.New(core))
	require.NoError(t, err)
	assert.Equal(t, queue.DefaultHandoffTopic, p.Topic)

	msg := queue.HandoffMessage{CampaignID: uuid.New(), OrganizationID: uuid.New(), HandedOffAt: time.Now().UTC()}
	require.NoError(t, p.Handoff(context.Background(), msg))
	require.NoError(t, closeFn())

	handed := logs.FilterMessage("campaign handed off to send pipeline").All()
	require.Len(t, handed, 1)
	assert.Equal(t, msg.CampaignID.String(), handed[0].ContextMap()["campaign_id"])
}
