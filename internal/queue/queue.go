// Package queue delivers mint requests from the accept path to the minting
// worker, either in process or through a Redis list.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"business-visa-backend/internal/domain"

	"github.com/google/uuid"
)

// Message is one queued mint request.
type Message struct {
	ID             string    `json:"id"`
	ApplicantEmail string    `json:"applicantEmail"`
	Attempts       int       `json:"attempts"`
	EnqueuedAt     time.Time `json:"enqueuedAt"`
}

// Queue is implemented by MemoryQueue and RedisQueue.
type Queue interface {
	Enqueue(ctx context.Context, applicantEmail string) error
	// Start launches the workers. They stop when ctx is cancelled.
	Start(ctx context.Context)
	// Wait blocks until every worker has returned.
	Wait()
}

// Handler mints the visa for one applicant.
type Handler func(ctx context.Context, applicantEmail string) error

// ErrQueueFull is returned when the in-memory buffer has no room left.
var ErrQueueFull = errors.New("mint queue is full")

const defaultMaxRetries = 3

func newMessage(applicantEmail string) (Message, error) {
	if applicantEmail == "" {
		return Message{}, fmt.Errorf("%w: applicant email is required", domain.ErrInvalidInput)
	}
	return Message{
		ID:             uuid.NewString(),
		ApplicantEmail: applicantEmail,
		EnqueuedAt:     time.Now().UTC(),
	}, nil
}

// retryable reports whether a failed mint may succeed on a later attempt.
// Conflicts mean the NFT exists or another worker holds the claim.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrInvalidInput):
		return false
	}
	return true
}

// backoff grows quadratically with the attempt number.
func backoff(attempt int) time.Duration {
	return time.Duration(attempt*attempt) * time.Second
}
