package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindValidation, KindOf(Validation("bad input")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("visit")))
	assert.Equal(t, KindInvalidTransition, KindOf(InvalidTransition("no")))
	assert.Equal(t, KindConflict, KindOf(Conflict("busy")))
	assert.Equal(t, KindAuthorization, KindOf(Authorization("denied")))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("visit"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindConflict))
}

func TestInternalUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Internal(cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestMessageFormatting(t *testing.T) {
	err := Validation("field %s exceeds %d characters", "notes", 5000)
	assert.Equal(t, "field notes exceeds 5000 characters", err.Message)

	assert.Equal(t, "visit not found", NotFound("visit").Message)
}
