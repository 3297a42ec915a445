package outbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Success(t *testing.T) {
	e, err := New("Payment", "agg-1", "PaymentSettled", []byte(`{"k":"v"}`))

	require.NoError(t, err)
	assert.NotEqual(t, "", e.ID.String())
	assert.Equal(t, "agg-1", e.AggregateID)
	assert.Equal(t, "Payment", e.AggregateType)
	assert.Nil(t, e.PublishedAt)
	assert.Equal(t, 0, e.RetryCount)
	assert.Equal(t, DefaultMaxRetries, e.MaxRetries)
}

func TestNew_EmptyAggregateID(t *testing.T) {
	_, err := New("Payment", "", "PaymentSettled", []byte(`{}`))
	assert.ErrorIs(t, err, ErrAggregateIDEmpty)
}

func TestNew_AggregateIDTooLong(t *testing.T) {
	long := strings.Repeat("a", MaxAggregateIDLength+1)
	_, err := New("Payment", long, "PaymentSettled", []byte(`{}`))
	assert.ErrorIs(t, err, ErrAggregateIDTooLong)
}

func TestNew_EmptyEventType(t *testing.T) {
	_, err := New("Payment", "agg-1", "", []byte(`{}`))
	assert.ErrorIs(t, err, ErrEventTypeEmpty)
}

func TestNew_NilPayload(t *testing.T) {
	_, err := New("Payment", "agg-1", "PaymentSettled", nil)
	assert.ErrorIs(t, err, ErrPayloadNil)
}

func TestNew_PayloadTooLarge(t *testing.T) {
	large := []byte(strings.Repeat("a", MaxPayloadSize+1))
	_, err := New("Payment", "agg-1", "PaymentSettled", large)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestIsPending_NewEvent(t *testing.T) {
	e, err := New("Payment", "agg-1", "PaymentSettled", []byte(`{}`))
	require.NoError(t, err)
	assert.True(t, e.IsPending())
	assert.False(t, e.IsDeadLettered())
}

func TestIsDeadLettered_RetriesExhausted(t *testing.T) {
	e, err := New("Payment", "agg-1", "PaymentSettled", []byte(`{}`))
	require.NoError(t, err)

	e.RetryCount = e.MaxRetries
	assert.True(t, e.IsDeadLettered())
	assert.False(t, e.IsPending())
}
