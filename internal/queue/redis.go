package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
	"business-visa-backend/internal/security"

	"github.com/go-redis/redis/v8"
)

// envelope is the value stored in the Redis list. Signature is a JWT over
// the exact Message bytes so that only this service can inject mints.
type envelope struct {
	Message   json.RawMessage `json:"message"`
	Signature string          `json:"signature"`
}

// RedisQueue keeps mint requests in a Redis list so they survive restarts
// and can be consumed by any instance.
type RedisQueue struct {
	client      *redis.Client
	key         string
	signer      security.MessageSigner
	handler     Handler
	workers     int
	maxRetries  int
	pollTimeout time.Duration
	backoff     func(attempt int) time.Duration
	wg          sync.WaitGroup
}

func NewRedisQueue(client *redis.Client, key string, signer security.MessageSigner, handler Handler, workers int) *RedisQueue {
	if workers <= 0 {
		workers = 1
	}
	return &RedisQueue{
		client:      client,
		key:         key,
		signer:      signer,
		handler:     handler,
		workers:     workers,
		maxRetries:  defaultMaxRetries,
		pollTimeout: 5 * time.Second,
		backoff:     backoff,
	}
}

func (q *RedisQueue) Enqueue(ctx context.Context, applicantEmail string) error {
	msg, err := newMessage(applicantEmail)
	if err != nil {
		return err
	}
	return q.push(ctx, msg)
}

func (q *RedisQueue) push(ctx context.Context, msg Message) error {
	data, err := encode(q.signer, msg)
	if err != nil {
		return err
	}
	n, err := q.client.LPush(ctx, q.key, data).Result()
	if err != nil {
		return fmt.Errorf("failed to push mint request: %w", err)
	}
	metrics.SetQueueDepth(int(n))
	return nil
}

// Start launches the consumers. They stop when ctx is cancelled.
func (q *RedisQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

func (q *RedisQueue) Wait() {
	q.wg.Wait()
}

func (q *RedisQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger.Info("Redis mint worker started", "worker", id, "key", q.key)

	for {
		if ctx.Err() != nil {
			logger.Info("Redis mint worker stopping", "worker", id)
			return
		}
		res, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error("Failed to pop mint request", "worker", id, "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
			}
			continue
		}
		// BRPop returns [key, value].
		if len(res) != 2 {
			continue
		}
		q.process(ctx, []byte(res[1]))
	}
}

func (q *RedisQueue) process(ctx context.Context, data []byte) {
	msg, err := decode(q.signer, data)
	if err != nil {
		logger.Error("Rejected mint request", "error", err)
		metrics.RecordJobItemFailure("mint_queue")
		return
	}
	log := logger.WithJob("mint_queue").With("message_id", msg.ID, "email", msg.ApplicantEmail, "attempt", msg.Attempts+1)

	err = q.handler(ctx, msg.ApplicantEmail)
	if err == nil {
		log.Info("Mint completed")
		return
	}
	if !retryable(err) || msg.Attempts >= q.maxRetries {
		log.Error("Mint dropped", "error", err)
		metrics.RecordJobItemFailure("mint_queue")
		return
	}

	msg.Attempts++
	delay := q.backoff(msg.Attempts)
	log.Warn("Mint failed, retrying", "error", err, "delay", delay)
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		// Push back anyway so the request is not lost on shutdown.
	}
	if err := q.push(context.Background(), msg); err != nil {
		log.Error("Failed to requeue mint request", "error", err)
	}
}

func encode(signer security.MessageSigner, msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal mint request: %w", err)
	}
	sig, err := signer.Sign(body)
	if err != nil {
		return nil, fmt.Errorf("sign mint request: %w", err)
	}
	return json.Marshal(envelope{Message: body, Signature: sig})
}

func decode(signer security.MessageSigner, data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if _, err := signer.Verify(env.Signature, env.Message); err != nil {
		return Message{}, fmt.Errorf("bad signature: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(env.Message, &msg); err != nil {
		return Message{}, fmt.Errorf("malformed message: %w", err)
	}
	return msg, nil
}
