package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeValidation, "label too short")
		assert.True(t, HasCode(err, CodeValidation))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("claim: %w", New(CodeConflict, "taken"))
		assert.True(t, HasCode(err, CodeConflict))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeUpstream, "registrar create failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUpstream, CodeOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewConflictCarriesExisting(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", NewConflict("address already has a subname", "bob.deptofagri.eth"))

	assert.True(t, HasCode(err, CodeConflict))
	assert.Equal(t, "bob.deptofagri.eth", Existing(err))
	assert.Empty(t, Existing(errors.New("other")))
}
