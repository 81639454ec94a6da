package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
	})

	t.Run("message includes cause", func(t *testing.T) {
		cause := errors.New("pq: could not serialize access")
		err := Wrap(cause, CodeConflict, "commit transaction")
		require.Error(t, err)
		assert.Equal(t, "commit transaction: pq: could not serialize access", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestHasCode(t *testing.T) {
	inner := New(CodeConflict, "write conflict")
	outer := Wrap(inner, CodeUnavailable, "transaction retries exhausted")

	assert.True(t, HasCode(outer, CodeConflict))
	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeNotFound))

	t.Run("through fmt wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("attempt 3: %w", inner)
		assert.True(t, HasCode(wrapped, CodeConflict))
	})
}

func TestIs(t *testing.T) {
	inner := New(CodeConflict, "write conflict")
	outer := Wrap(inner, CodeUnavailable, "transaction retries exhausted")

	assert.True(t, Is(outer, CodeUnavailable))
	assert.False(t, Is(outer, CodeConflict))
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
