package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppErrorHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeValidation, http.StatusBadRequest},
		{ErrorCodeConflict, http.StatusConflict},
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodeInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		e := &AppError{Code: tc.code}
		require.Equal(t, tc.want, e.HTTPStatus())
	}
}

func TestAppErrorPublicMessage(t *testing.T) {
	t.Parallel()

	hidden := NewInternalError("db exploded", errors.New("boom"), "op")
	require.Equal(t, "internal error", hidden.PublicMessage())

	shown := NewValidationError("bad track number", nil, "op")
	require.Equal(t, "bad track number", shown.PublicMessage())
}

func TestAppErrorUnwrapAndIs(t *testing.T) {
	t.Parallel()

	inner := errors.New("io fail")
	e := NewInternalError("save album", inner, "op")

	require.ErrorIs(t, e, inner)
	wrapped := fmt.Errorf("outer: %w", e)

	got, ok := AsAppError(wrapped)
	require.True(t, ok)
	require.Equal(t, ErrorCodeInternal, got.Code)
}

func TestIsNotFound(t *testing.T) {
	t.Parallel()

	nf := NewNotFoundError(KindAlbum, "alb1", "op")
	require.True(t, IsNotFound(nf))
	require.Contains(t, nf.Error(), "album alb1 not found")

	require.False(t, IsNotFound(NewConflictError(KindArtist, "a1", "op")))
	require.False(t, IsNotFound(nil))
	require.False(t, IsNotFound(errors.New("plain")))
}
