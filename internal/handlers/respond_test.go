package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type auditRequest struct {
	TimeoutSeconds int    `validate:"omitempty,gte=1,lte=3600"`
	Operator       string `validate:"required,email"`
}

func TestRequestValidator_Check(t *testing.T) {
	v := NewRequestValidator()

	t.Run("valid request", func(t *testing.T) {
		assert.NoError(t, v.Check(&auditRequest{TimeoutSeconds: 60, Operator: "ops@example.com"}))
	})

	t.Run("timeout is optional", func(t *testing.T) {
		assert.NoError(t, v.Check(&auditRequest{Operator: "ops@example.com"}))
	})

	t.Run("every invalid field reported", func(t *testing.T) {
		err := v.Check(&auditRequest{TimeoutSeconds: 7200, Operator: "not-an-email"})
		require.Error(t, err)

		var fieldErrs validator.ValidationErrors
		require.True(t, errors.As(err, &fieldErrs))
		assert.Len(t, fieldErrs, 2)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("plain message", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusServiceUnavailable, "Ledger snapshot unavailable", nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Ledger snapshot unavailable", resp.Error)
		assert.Nil(t, resp.Details)
	})

	t.Run("field details", func(t *testing.T) {
		err := NewRequestValidator().Check(&auditRequest{TimeoutSeconds: -1})
		require.Error(t, err)

		w := httptest.NewRecorder()
		writeError(w, http.StatusBadRequest, "Validation failed", err)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "failed on 'gte' tag", resp.Details["TimeoutSeconds"])
		assert.Equal(t, "failed on 'required' tag", resp.Details["Operator"])
	})

	t.Run("other errors carry no details", func(t *testing.T) {
		w := httptest.NewRecorder()
		writeError(w, http.StatusInternalServerError, "Internal error", errors.New("boom"))

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Nil(t, resp.Details)
	})
}
