package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = New(KindNotFound, "sample_missing", "sample not found")

func TestIsMatchesWrappedSentinel(t *testing.T) {
	err := fmt.Errorf("load: %w", errSample.With("sample %s not found", "x"))
	assert.True(t, errors.Is(err, errSample))
	assert.False(t, errors.Is(err, New(KindNotFound, "other", "other")))
}

func TestAsExtractsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(errors.New("boom"), KindComputation, "calc", "calc failed"))
	appErr, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindComputation, appErr.Kind)
	assert.Equal(t, "calc failed: boom", appErr.Error())
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(KindValidation))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(KindNotFound))
	assert.Equal(t, http.StatusConflict, HTTPStatus(KindConflict))
	assert.Equal(t, http.StatusUnprocessableEntity, HTTPStatus(KindComputation))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(KindInternal))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, KindInternal, "x", "y"))
}
