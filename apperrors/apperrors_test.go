package apperrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{InvalidArgument("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{PermissionDenied("nope"), http.StatusForbidden},
		{Conflict("raced"), http.StatusConflict},
		{Unavailable("down", errors.New("io")), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err))
	}
}

func TestStatusUnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("context: %w", NotFound("missing"))
	assert.Equal(t, http.StatusNotFound, Status(wrapped))
}

func TestWriteRendersJSONBody(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, PermissionDenied("not the owner"))

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not the owner", body["error"])
}

func TestWriteHidesUnknownErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	Write(rec, errors.New("sensitive internals"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal error", body["error"])
}
