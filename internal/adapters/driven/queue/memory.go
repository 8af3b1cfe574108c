package queue

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/custodia-labs/sercha-ingest/internal/core/domain"
	"github.com/custodia-labs/sercha-ingest/internal/core/ports/driven"
)

// ErrClosed is returned by a queue after Close.
var ErrClosed = errors.New("queue closed")

// Ensure MemoryQueue implements the interface.
var _ driven.MessageQueue = (*MemoryQueue)(nil)

const (
	defaultVisibilityTimeout = 15 * time.Minute
	defaultPollInterval      = time.Second
)

type memoryMessage struct {
	id        string
	payload   []byte
	attempts  int
	visibleAt time.Time
}

// MemoryQueue is an in-process at-least-once queue. Received messages are
// hidden until acked, nacked, or the visibility timeout lapses.
type MemoryQueue struct {
	mu         sync.Mutex
	messages   []*memoryMessage
	seq        int64
	visibility time.Duration
	clock      clockwork.Clock
	wake       chan struct{}
	closed     bool
}

// NewMemoryQueue creates an empty queue. A zero visibility uses the default timeout.
func NewMemoryQueue(clock clockwork.Clock, visibility time.Duration) *MemoryQueue {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if visibility <= 0 {
		visibility = defaultVisibilityTimeout
	}
	return &MemoryQueue{
		visibility: visibility,
		clock:      clock,
		wake:       make(chan struct{}, 1),
	}
}

// Publish enqueues payload.
func (q *MemoryQueue) Publish(_ context.Context, payload []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	q.seq++
	q.messages = append(q.messages, &memoryMessage{
		id:        strconv.FormatInt(q.seq, 10),
		payload:   append([]byte(nil), payload...),
		visibleAt: q.clock.Now(),
	})
	q.signal()
	return nil
}

// Receive returns the oldest visible message, waiting until one is available.
func (q *MemoryQueue) Receive(ctx context.Context) (*driven.Delivery, error) {
	for {
		if d, err := q.tryReceive(); d != nil || err != nil {
			return d, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		case <-q.clock.After(defaultPollInterval):
		}
	}
}

func (q *MemoryQueue) tryReceive() (*driven.Delivery, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	now := q.clock.Now()
	for _, m := range q.messages {
		if m.visibleAt.After(now) {
			continue
		}
		m.attempts++
		m.visibleAt = now.Add(q.visibility)
		return &driven.Delivery{
			ID:       m.id,
			Payload:  append([]byte(nil), m.payload...),
			Attempts: m.attempts,
		}, nil
	}
	return nil, nil
}

// Ack removes the message.
func (q *MemoryQueue) Ack(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, m := range q.messages {
		if m.id == id {
			q.messages = append(q.messages[:i], q.messages[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

// Nack makes the message visible again after delay.
func (q *MemoryQueue) Nack(_ context.Context, id string, delay time.Duration) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range q.messages {
		if m.id == id {
			m.visibleAt = q.clock.Now().Add(delay)
			if delay <= 0 {
				q.signal()
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

// Len returns the number of unacked messages.
func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Close stops the queue. Blocked receivers return on their next wake-up.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.signal()
	return nil
}

func (q *MemoryQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
