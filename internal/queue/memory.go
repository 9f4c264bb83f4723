package queue

import (
	"context"
	"sync"
	"time"

	"business-visa-backend/internal/logger"
	"business-visa-backend/internal/metrics"
)

// MemoryQueue runs mints on a fixed pool of goroutines fed by a buffered
// channel. Pending messages are lost on restart; the mint reconciliation job
// picks those applicants up.
type MemoryQueue struct {
	handler    Handler
	jobs       chan Message
	workers    int
	maxRetries int
	backoff    func(attempt int) time.Duration
	wg         sync.WaitGroup
}

func NewMemoryQueue(handler Handler, workers, size int) *MemoryQueue {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 100
	}
	return &MemoryQueue{
		handler:    handler,
		jobs:       make(chan Message, size),
		workers:    workers,
		maxRetries: defaultMaxRetries,
		backoff:    backoff,
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (q *MemoryQueue) Start(ctx context.Context) {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(ctx, i)
	}
}

// Wait blocks until every worker has returned.
func (q *MemoryQueue) Wait() {
	q.wg.Wait()
}

func (q *MemoryQueue) worker(ctx context.Context, id int) {
	defer q.wg.Done()
	logger.Info("Mint worker started", "worker", id)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Mint worker stopping", "worker", id)
			return
		case msg := <-q.jobs:
			metrics.SetQueueDepth(len(q.jobs))
			q.process(ctx, msg)
		}
	}
}

func (q *MemoryQueue) process(ctx context.Context, msg Message) {
	log := logger.WithJob("mint_queue").With("message_id", msg.ID, "email", msg.ApplicantEmail, "attempt", msg.Attempts+1)

	err := q.handler(ctx, msg.ApplicantEmail)
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
	time.AfterFunc(delay, func() {
		select {
		case q.jobs <- msg:
		case <-ctx.Done():
		}
	})
}

// Enqueue adds a mint request without blocking.
func (q *MemoryQueue) Enqueue(ctx context.Context, applicantEmail string) error {
	msg, err := newMessage(applicantEmail)
	if err != nil {
		return err
	}
	select {
	case q.jobs <- msg:
		metrics.SetQueueDepth(len(q.jobs))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}
