package services

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestInvestmentService_CreateInvestment(t *testing.T) {
	db, _, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	service := NewInvestmentService(db, nil, NewWalletService(db, &MockAuditSink{}), &MockAuditSink{})

	t.Run("missing user context", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/investments", bytes.NewBufferString(`{"projectId":"p1","amountCents":10000}`))
		w := httptest.NewRecorder()

		service.CreateInvestment(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid request body", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/investments", bytes.NewBufferString("invalid"))
		r = r.WithContext(context.WithValue(r.Context(), "userID", "user1"))
		w := httptest.NewRecorder()

		service.CreateInvestment(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/investments", bytes.NewBufferString(`{"projectId":"p1","amountCents":10000,"extra":true}`))
		r = r.WithContext(context.WithValue(r.Context(), "userID", "user1"))
		w := httptest.NewRecorder()

		service.CreateInvestment(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects non-positive amount", func(t *testing.T) {
		r := httptest.NewRequest("POST", "/investments", bytes.NewBufferString(`{"projectId":"p1","amountCents":-5}`))
		r = r.WithContext(context.WithValue(r.Context(), "userID", "user1"))
		w := httptest.NewRecorder()

		service.CreateInvestment(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWriteEngineError(t *testing.T) {
	t.Run("validation error carries every reason", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteEngineError(w, &ValidationError{Reasons: []string{"first problem", "second problem"}})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"first problem", "second problem"}, resp.Reasons)
	})

	t.Run("insufficient shares maps to conflict", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteEngineError(w, ErrInsufficientShares)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("insufficient funds maps to bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteEngineError(w, ErrInsufficientFunds)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("wallet not found maps to not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		WriteEngineError(w, ErrWalletNotFound)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
