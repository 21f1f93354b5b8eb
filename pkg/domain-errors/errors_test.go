package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("new error carries code and message", func(t *testing.T) {
		err := New(CodeOutOfSequence, "checkpoint CP003 expected CP002")
		assert.True(t, HasCode(err, CodeOutOfSequence))
		assert.Equal(t, "checkpoint CP003 expected CP002", MessageOf(err))
	})

	t.Run("wrapped cause remains reachable", func(t *testing.T) {
		cause := errors.New("disk on fire")
		err := Wrap(cause, CodeInternal, "failed to append")
		require.ErrorIs(t, err, cause)
		assert.Equal(t, CodeInternal, CodeOf(err))
	})

	t.Run("outermost code wins", func(t *testing.T) {
		inner := New(CodeNotFound, "shipment not found")
		outer := Wrap(inner, CodeIncorrectPin, "incorrect pin")
		assert.True(t, HasCode(outer, CodeIncorrectPin))
		assert.False(t, HasCode(outer, CodeNotFound))
	})

	t.Run("code survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("scan: %w", New(CodeTerminalState, "shipment delivered"))
		assert.True(t, HasCode(err, CodeTerminalState))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
		assert.Equal(t, "", MessageOf(nil))
	})
}
