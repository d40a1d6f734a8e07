package serrors

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/require"
)

func TestCodeOf_Wrapped(t *testing.T) {
	t.Parallel()

	err := errors.Wrap(Conflict("code 1S/08-26 already assigned"), "assigning codes")
	require.Equal(t, CodeConflict, CodeOf(err))
	require.True(t, IsCode(err, CodeConflict))
	require.False(t, IsCode(err, CodeValidation))
}

func TestCodeOf_Plain(t *testing.T) {
	t.Parallel()

	require.Equal(t, "", CodeOf(errors.New("some error")))
	require.Equal(t, "", CodeOf(nil))
}

func TestBase_Error(t *testing.T) {
	t.Parallel()

	require.Equal(t, "authorization denied: only regional units accept transfers", AuthorizationDenied("only regional units accept transfers").Error())
	require.Equal(t, "not found", NewError(CodeNotFound, "not found", "").Error())
}
