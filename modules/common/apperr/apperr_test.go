package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindOfThroughWrapping(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("generate outfit: %w", Wrap(KindContentRejected, "blocked", cause))

	require.Equal(t, KindContentRejected, KindOf(err))
	require.True(t, Is(err, KindContentRejected))
	require.False(t, Is(err, KindNoOutput))
	require.ErrorIs(t, err, cause)
	require.Equal(t, "generate outfit: blocked", err.Error())
}

func TestKindOfPlainError(t *testing.T) {
	require.Equal(t, KindProvider, KindOf(errors.New("plain")))
}

func TestErrorMessageFallback(t *testing.T) {
	require.Equal(t, "inner", Wrap(KindProvider, "", errors.New("inner")).Error())
	require.Equal(t, "NoOutputProduced", New(KindNoOutput, "").Error())
}

func TestHTTPStatus(t *testing.T) {
	require.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	for _, k := range []Kind{KindConfiguration, KindContentRejected, KindProviderUnavailable, KindNoOutput, KindProvider} {
		require.Equal(t, http.StatusInternalServerError, HTTPStatus(k), k)
	}
}
