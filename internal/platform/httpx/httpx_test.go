package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mercato-hq/mercato/internal/backend"
	"github.com/mercato-hq/mercato/internal/validate"
)

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("lookup: %w", ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("insert: %w", backend.ErrConflict), http.StatusConflict},
		{validate.Invalid[int](validate.FieldErrors{"name": "is required"}).Err(), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: period", ErrValidation), http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondError(rec, tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, tc.status, Status(tc.err))
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	}
}

func TestValidationProblemListsFields(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, validate.Invalid[int](validate.FieldErrors{"amount": "must be greater than zero"}).Err())

	var body ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "must be greater than zero", body.Errors["amount"])
}

func TestInternalErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, errors.New("pq: password authentication failed"))
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x","extra":1}`))
	var target struct {
		Name string `json:"name"`
	}
	err := DecodeJSON(req, &target)
	assert.ErrorIs(t, err, ErrBadRequest)
}
