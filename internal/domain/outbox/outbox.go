// Package outbox models the transactional outbox and the processed-event
// dedup table: the two durable structures that make event delivery
// at-least-once and event consumption idempotent.
package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Maximum sizes enforced at construction time: aggregate id length and
// payload size are bounded so a malformed event can never be appended.
const (
	MaxAggregateIDLength = 128
	MaxPayloadSize       = 256 * 1024
	DefaultMaxRetries    = 5
)

var (
	ErrAggregateIDEmpty   = errors.New("aggregate id must not be empty")
	ErrAggregateIDTooLong = errors.New("aggregate id exceeds maximum length")
	ErrEventTypeEmpty     = errors.New("event type must not be empty")
	ErrPayloadNil         = errors.New("payload must not be nil")
	ErrPayloadTooLarge    = errors.New("payload exceeds maximum size")
)

// Event is a single durable outbound domain event, inserted within a
// business transaction and later delivered at-least-once by the outbox
// dispatcher.
type Event struct {
	ID             uuid.UUID
	AggregateType  string
	AggregateID    string
	EventType      string
	Payload        []byte
	CreatedAt      time.Time
	PublishedAt    *time.Time
	RetryCount     int
	MaxRetries     int
	LastError      *string
	SequenceNumber int64
}

// New validates and constructs a pending outbox event. sequence_number
// is left zero: the store assigns it monotonically on insert.
func New(aggregateType, aggregateID, eventType string, payload []byte) (Event, error) {
	if aggregateID == "" {
		return Event{}, ErrAggregateIDEmpty
	}

	if len(aggregateID) > MaxAggregateIDLength {
		return Event{}, ErrAggregateIDTooLong
	}

	if eventType == "" {
		return Event{}, ErrEventTypeEmpty
	}

	if payload == nil {
		return Event{}, ErrPayloadNil
	}

	if len(payload) > MaxPayloadSize {
		return Event{}, ErrPayloadTooLarge
	}

	return Event{
		ID:            uuid.New(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		CreatedAt:     time.Now(),
		MaxRetries:    DefaultMaxRetries,
	}, nil
}

// IsDeadLettered reports whether e has exhausted its retry budget and
// will no longer be attempted by the dispatcher.
func (e Event) IsDeadLettered() bool {
	return e.PublishedAt == nil && e.RetryCount >= e.MaxRetries
}

// IsPending reports whether e is still eligible for delivery.
func (e Event) IsPending() bool {
	return e.PublishedAt == nil && !e.IsDeadLettered()
}

// ProcessResult is the closed set of outcomes a consumer records for an
// (event_id, consumer_group) pair.
type ProcessResult string

const (
	// ResultProcessing marks a claimed-but-not-yet-completed attempt: the
	// row a claim writes before the handler runs, so a second concurrent
	// claim attempt sees the primary key already taken and backs off
	// instead of running the handler a second time.
	ResultProcessing ProcessResult = "PROCESSING"
	ResultSuccess    ProcessResult = "SUCCESS"
	ResultSkipped    ProcessResult = "SKIPPED"
	ResultFailed     ProcessResult = "FAILED"
)

// ProcessedEvent is the dedup record for one consumer group's handling
// of one event. Its primary key is (EventID, ConsumerGroup): the same
// event may be processed independently by several groups, but never
// twice by the same group.
type ProcessedEvent struct {
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   string
	ConsumerGroup string
	ProcessedAt   time.Time
	Result        ProcessResult
	ErrorMessage  *string
}
