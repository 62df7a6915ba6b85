package services

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

func TestSendError(t *testing.T) {
	t.Run("domain error", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendError(w, fmt.Errorf("transfer: %w", ErrInsufficientFunds))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		assert.Equal(t, "insufficient balance", resp.Error)
		assert.Nil(t, resp.Details)
	})

	t.Run("validation details", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendError(w, ErrInvalidInput.WithDetails(map[string]string{"username": "Field Validation Failed on 'min' tag"}))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, resp.Details, "username")
	})

	t.Run("unknown error is not leaked", func(t *testing.T) {
		w := httptest.NewRecorder()
		SendError(w, errors.New("pq: connection refused"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "pq:")
		assert.Contains(t, w.Body.String(), "internal error")
	})
}
