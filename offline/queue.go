// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultKey is the storage key the queue lives under
const DefaultKey = "aquadrop.offline-requests"

// QueuedSubmission is one buffered form submission
type QueuedSubmission struct {
	ID       string          `json:"id"`
	Payload  json.RawMessage `json:"payload"`
	QueuedAt time.Time       `json:"queuedAt"`
}

// SubmitResult is what the server said about a submission.
// Anything but Success == true leaves the item queued.
type SubmitResult struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// SubmitFunc delivers one payload. A non-nil error means the transport failed.
type SubmitFunc func(ctx context.Context, payload json.RawMessage) (SubmitResult, error)

type Status int

const (
	// Submitted means the server accepted the item and it left the queue
	Submitted Status = iota
	// Failed means the item was rejected or unreachable and is still queued
	Failed
	// Unpersisted means the server accepted the item but removing it from
	// storage failed, so it is still queued
	Unpersisted
)

func (s Status) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Failed:
		return "failed"
	case Unpersisted:
		return "unpersisted"
	}
	return "unknown"
}

// Outcome reports what happened to one item during Drain
type Outcome struct {
	Submission QueuedSubmission
	Status     Status
	Result     SubmitResult
	Err        error
}

// Queue buffers submissions while offline and replays them in order.
// Only one item is ever in flight.
type Queue struct {
	storage Storage
	key     string
	submit  SubmitFunc
	now     func() time.Time
	logger  *slog.Logger

	// mu serializes read-modify-write cycles on storage; it is never held
	// across a submit call.
	mu       sync.Mutex
	draining atomic.Bool
}

type Option func(*Queue)

func WithKey(key string) Option {
	return func(q *Queue) { q.key = key }
}

func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

func New(storage Storage, submit SubmitFunc, opts ...Option) *Queue {
	q := &Queue{
		storage: storage,
		key:     DefaultKey,
		submit:  submit,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queue) load() ([]QueuedSubmission, error) {
	data, err := q.storage.Load(q.key)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var items []QueuedSubmission
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("failed to decode queue: %w", err)
	}
	return items, nil
}

func (q *Queue) store(items []QueuedSubmission) error {
	if len(items) == 0 {
		return q.storage.Remove(q.key)
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode queue: %w", err)
	}
	return q.storage.Save(q.key, data)
}

// Enqueue appends a payload to the tail. If storage is unavailable the
// payload is dropped; the caller is never blocked by persistence.
func (q *Queue) Enqueue(payload json.RawMessage) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		q.logger.Debug("offline queue unavailable, dropping submission", "error", err)
		return
	}
	item := QueuedSubmission{
		ID:       uuid.NewString(),
		Payload:  append(json.RawMessage(nil), payload...),
		QueuedAt: q.now().UTC(),
	}
	if err := q.store(append(items, item)); err != nil {
		q.logger.Debug("offline queue unavailable, dropping submission", "error", err)
		return
	}
	q.logger.Info("submission queued", "id", item.ID, "depth", len(items)+1)
}

func (q *Queue) head() (QueuedSubmission, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		q.logger.Debug("offline queue unreadable", "error", err)
		return QueuedSubmission{}, false
	}
	if len(items) == 0 {
		return QueuedSubmission{}, false
	}
	return items[0], true
}

// removeHead drops the head only if it is still the item that was submitted
func (q *Queue) removeHead(id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		return err
	}
	if len(items) == 0 || items[0].ID != id {
		return nil
	}
	return q.store(items[1:])
}

// Drain submits queued items head to tail and stops at the first failure so
// a later item never overtakes an earlier one. A call made while another
// Drain is running returns nil without doing anything.
func (q *Queue) Drain(ctx context.Context) []Outcome {
	if !q.draining.CompareAndSwap(false, true) {
		q.logger.Debug("drain already in progress")
		return nil
	}
	defer q.draining.Store(false)

	var outcomes []Outcome
	for ctx.Err() == nil {
		item, ok := q.head()
		if !ok {
			break
		}

		res, err := q.submit(ctx, item.Payload)
		if err != nil || !res.Success {
			outcomes = append(outcomes, Outcome{Submission: item, Status: Failed, Result: res, Err: err})
			q.logger.Warn("queued submission failed, will retry",
				"id", item.ID,
				"error", err,
				"error_code", res.ErrorCode,
			)
			break
		}

		if err := q.removeHead(item.ID); err != nil {
			outcomes = append(outcomes, Outcome{Submission: item, Status: Unpersisted, Result: res, Err: err})
			q.logger.Error("submitted item could not be removed from queue", "id", item.ID, "error", err)
			break
		}
		outcomes = append(outcomes, Outcome{Submission: item, Status: Submitted, Result: res})
		q.logger.Info("queued submission delivered", "id", item.ID)
	}
	return outcomes
}

// PeekAll returns the queued items in order without changing them
func (q *Queue) PeekAll() []QueuedSubmission {
	q.mu.Lock()
	defer q.mu.Unlock()

	items, err := q.load()
	if err != nil {
		q.logger.Debug("offline queue unreadable", "error", err)
		return nil
	}
	return items
}

// Len is the number of queued items
func (q *Queue) Len() int {
	return len(q.PeekAll())
}

// Clear discards every queued item
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if err := q.storage.Remove(q.key); err != nil {
		q.logger.Debug("failed to clear offline queue", "error", err)
	}
}

// Draining reports whether a Drain call is in progress
func (q *Queue) Draining() bool {
	return q.draining.Load()
}
