package result

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOkAndFail(t *testing.T) {
	ok := Ok(42)
	assert.True(t, ok.IsOk())
	assert.False(t, ok.IsFail())
	assert.Equal(t, 42, ok.Value())
	assert.NoError(t, ok.Err())

	boom := errors.New("boom")
	failed := Fail[int](boom)
	assert.True(t, failed.IsFail())
	assert.Zero(t, failed.Value())
	assert.ErrorIs(t, failed.Err(), boom)
}

func TestFailWithNilErrorStaysFailed(t *testing.T) {
	r := Fail[string](nil)
	require.True(t, r.IsFail())
	assert.ErrorIs(t, r.Err(), ErrNilFailure)
}

func TestMap(t *testing.T) {
	r := Map(Ok(7), strconv.Itoa)
	v, err := r.Unwrap()
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	boom := errors.New("boom")
	failed := Map(Fail[int](boom), strconv.Itoa)
	assert.ErrorIs(t, failed.Err(), boom)
}
