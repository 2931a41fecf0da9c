package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestQueue() *InMemoryQueue {
	q := NewInMemoryQueue(zap.NewNop())
	q.Backoff = time.Millisecond
	return q
}

func TestPublishWithoutSubscribers(t *testing.T) {
	q := newTestQueue()
	assert.Error(t, q.Publish(context.Background(), "nobody", 1))
}

func TestInMemoryQueueRetriesUntilSuccess(t *testing.T) {
	q := newTestQueue()

	var mu sync.Mutex
	var attempts []Delivery
	require.NoError(t, q.Subscribe("jobs", func(_ context.Context, d Delivery) error {
		mu.Lock()
		defer mu.Unlock()
		attempts = append(attempts, d)
		if len(attempts) < 3 {
			return errors.New("boom")
		}
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), "jobs", map[string]int{"n": 1}))
	q.Wait()

	require.Len(t, attempts, 3)
	assert.Equal(t, 2, attempts[2].Attempt)
	assert.False(t, attempts[2].Final)
	assert.JSONEq(t, `{"n":1}`, string(attempts[0].Body))
}

func TestInMemoryQueueGivesUp(t *testing.T) {
	q := newTestQueue()

	var calls int
	var last Delivery
	require.NoError(t, q.Subscribe("jobs", func(_ context.Context, d Delivery) error {
		calls++
		last = d
		return errors.New("boom")
	}))

	require.NoError(t, q.Publish(context.Background(), "jobs", 1))
	q.Wait()

	assert.Equal(t, DefaultMaxRetries+1, calls)
	assert.True(t, last.Final)
}

func TestSubscribeCampaignSends(t *testing.T) {
	q := newTestQueue()
	job := SendJob{CampaignID: uuid.New(), RecipientID: uuid.New()}

	var got []SendJob
	var mu sync.Mutex
	require.NoError(t, SubscribeCampaignSends(q, zap.NewNop(), func(_ context.Context, j SendJob, final bool) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, j)
		return nil
	}))

	require.NoError(t, q.Publish(context.Background(), TopicCampaignSends, job))
	require.NoError(t, q.Publish(context.Background(), TopicCampaignSends, "not a job"))
	q.Wait()

	assert.Equal(t, []SendJob{job}, got)
}

func TestRetryCount(t *testing.T) {
	assert.Equal(t, 0, retryCount(nil))
	assert.Equal(t, 2, retryCount(amqp.Table{retryHeader: int32(2)}))
	assert.Equal(t, 3, retryCount(amqp.Table{retryHeader: int64(3)}))
	assert.Equal(t, 1, retryCount(amqp.Table{retryHeader: 1}))
	assert.Equal(t, 0, retryCount(amqp.Table{retryHeader: "2"}))
}
