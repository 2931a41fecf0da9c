package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes and consumes JSON jobs on durable RabbitMQ queues
// named after the topic. A failed job is republished with x-retry-count
// incremented until MaxRetries.
type AMQPQueue struct {
	MaxRetries int
	Prefetch   int

	conn   *amqp.Connection
	logger *zap.Logger

	mu       sync.Mutex
	ch       *amqp.Channel
	declared map[string]bool
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	ctx      context.Context
}

// DialAMQP connects to url and opens the publishing channel.
func DialAMQP(url string, logger *zap.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AMQPQueue{
		MaxRetries: DefaultMaxRetries,
		Prefetch:   10,
		conn:       conn,
		logger:     logger,
		ch:         ch,
		declared:   make(map[string]bool),
		ctx:        ctx,
		cancel:     cancel,
	}, nil
}

// declare must be called with mu held.
func (q *AMQPQueue) declare(ch *amqp.Channel, topic string) error {
	if q.declared[topic] {
		return nil
	}
	_, err := ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", topic, err)
	}
	q.declared[topic] = true
	return nil
}

func (q *AMQPQueue) Publish(_ context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retry int) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.declare(q.ch, topic); err != nil {
		return err
	}
	return q.ch.Publish(
		"",    // default exchange
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{retryHeader: int32(retry)},
			Body:         body,
		},
	)
}

// Subscribe starts a consumer on its own channel. Handlers run one at a
// time per subscription; Close stops them.
func (q *AMQPQueue) Subscribe(topic string, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open a channel: %w", err)
	}
	q.mu.Lock()
	delete(q.declared, topic)
	err = q.declare(ch, topic)
	q.mu.Unlock()
	if err != nil {
		ch.Close()
		return err
	}
	if err := ch.Qos(q.Prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		defer ch.Close()
		for {
			select {
			case <-q.ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				q.handle(topic, handler, d)
			}
		}
	}()
	return nil
}

func (q *AMQPQueue) handle(topic string, handler Handler, d amqp.Delivery) {
	retry := retryCount(d.Headers)
	final := retry >= q.MaxRetries
	err := handler(q.ctx, Delivery{Body: d.Body, Attempt: retry, Final: final})
	if err == nil {
		_ = d.Ack(false)
		return
	}

	if final {
		q.logger.Error("job permanently failed",
			zap.String("topic", topic), zap.Int("attempts", retry+1), zap.ByteString("job", d.Body), zap.Error(err))
		_ = d.Ack(false)
		return
	}

	q.logger.Warn("job failed, requeueing",
		zap.String("topic", topic), zap.Int("attempt", retry+1), zap.Int("max_retries", q.MaxRetries), zap.Error(err))
	if perr := q.publish(topic, d.Body, retry+1); perr != nil {
		q.logger.Error("failed to requeue job", zap.String("topic", topic), zap.Error(perr))
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// retryCount reads x-retry-count, whatever integer type the broker kept.
func retryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int:
		return v
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	default:
		return 0
	}
}

// Close stops consumers, waits for in-flight handlers and closes the
// connection.
func (q *AMQPQueue) Close() error {
	q.cancel()
	q.wg.Wait()
	q.mu.Lock()
	_ = q.ch.Close()
	q.mu.Unlock()
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
