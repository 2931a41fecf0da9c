package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TopicCampaignSends carries one SendJob per campaign recipient.
const TopicCampaignSends = "campaign_sends"

// DefaultMaxRetries is how often a failed job is retried before it is
// given up.
const DefaultMaxRetries = 3

// SendJob asks the worker to deliver one campaign recipient.
type SendJob struct {
	CampaignID  uuid.UUID `json:"campaign_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
}

// Delivery is a job handed to a subscriber. Final is set on the last
// attempt, after which a failing job is dropped.
type Delivery struct {
	Body    []byte
	Attempt int
	Final   bool
}

// Decode unmarshals the body into dst.
func (d Delivery) Decode(dst any) error {
	return json.Unmarshal(d.Body, dst)
}

type Handler func(ctx context.Context, d Delivery) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(topic string, handler Handler) error
}

// InMemoryQueue runs handlers in goroutines with retry and linear backoff.
type InMemoryQueue struct {
	MaxRetries int
	Backoff    time.Duration

	logger   *zap.Logger
	mu       sync.Mutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(logger *zap.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		MaxRetries: DefaultMaxRetries,
		Backoff:    500 * time.Millisecond,
		logger:     logger,
		handlers:   make(map[string][]Handler),
	}
}

// Publish hands the JSON encoded payload to every subscriber of topic.
func (q *InMemoryQueue) Publish(_ context.Context, topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	for _, handler := range handlers {
		q.wg.Add(1)
		go q.processJob(topic, handler, body)
	}
	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler Handler, body []byte) {
	defer q.wg.Done()
	ctx := context.Background()

	for attempt := 0; attempt <= q.MaxRetries; attempt++ {
		d := Delivery{Body: body, Attempt: attempt, Final: attempt == q.MaxRetries}
		err := handler(ctx, d)
		if err == nil {
			q.logger.Debug("job processed", zap.String("topic", topic), zap.Int("attempt", attempt))
			return // ACK
		}

		if d.Final {
			q.logger.Error("job permanently failed",
				zap.String("topic", topic), zap.Int("attempts", attempt+1), zap.ByteString("job", body), zap.Error(err))
			return // no requeue
		}
		q.logger.Warn("job failed, retrying",
			zap.String("topic", topic), zap.Int("attempt", attempt+1), zap.Int("max_retries", q.MaxRetries), zap.Error(err))
		time.Sleep(time.Duration(attempt+1) * q.Backoff)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every published job has finished, retries included.
func (q *InMemoryQueue) Wait() {
	q.wg.Wait()
}

// SubscribeCampaignSends decodes SendJobs from topic campaign_sends and
// passes them to fn. Malformed jobs are acknowledged and dropped.
func SubscribeCampaignSends(q Queue, logger *zap.Logger, fn func(ctx context.Context, job SendJob, final bool) error) error {
	return q.Subscribe(TopicCampaignSends, func(ctx context.Context, d Delivery) error {
		var job SendJob
		if err := d.Decode(&job); err != nil || job.RecipientID == uuid.Nil {
			logger.Warn("dropping invalid send job", zap.ByteString("body", d.Body), zap.Error(err))
			return nil
		}
		return fn(ctx, job, d.Final)
	})
}

var _ Queue = (*InMemoryQueue)(nil)
