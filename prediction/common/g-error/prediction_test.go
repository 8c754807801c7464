package g_error

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindAuthorization, KindOf(ErrNotOwner))
	assert.Equal(t, KindState, KindOf(ErrBetTooEarlyLate))
	assert.Equal(t, KindBounds, KindOf(ErrOutOfBounds))
	assert.Equal(t, KindEligibility, KindOf(ErrNotEligible))
	assert.Equal(t, KindDuplicate, KindOf(ErrRoundNotBettable))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}
