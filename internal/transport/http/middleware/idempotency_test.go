package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"hrm-payroll/internal/domain/auth"
)

type memIdempotency struct {
	hashes    map[string]string
	responses map[string]StoredResponse
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{hashes: map[string]string{}, responses: map[string]StoredResponse{}}
}

func (m *memIdempotency) Check(_ context.Context, userID, endpoint, key, hash string) (StoredResponse, bool, error) {
	id := userID + "|" + endpoint + "|" + key
	stored, ok := m.hashes[id]
	if !ok {
		return StoredResponse{}, false, nil
	}
	if stored != hash {
		return StoredResponse{}, false, ErrIdempotencyConflict
	}
	return m.responses[id], true, nil
}

func (m *memIdempotency) Save(_ context.Context, userID, endpoint, key, hash string, resp StoredResponse) error {
	id := userID + "|" + endpoint + "|" + key
	m.hashes[id] = hash
	m.responses[id] = resp
	return nil
}

func TestRequestHashDeterministic(t *testing.T) {
	assert.Equal(t, RequestHash([]byte("payload")), RequestHash([]byte("payload")))
	assert.NotEqual(t, RequestHash([]byte("payload")), RequestHash([]byte("other")))
}

func TestIdempotencyReplaysAndRejectsReuse(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(newMemIdempotency())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"data":{"payrollId":"p1"}}`))
	}))

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/run", bytes.NewBufferString(body))
		req.Header.Set(IdempotencyHeader, "key-1")
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1", Role: auth.RoleHR}))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send(`{"employeeCode":"E1"}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	replay := send(`{"employeeCode":"E1"}`)
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())
	assert.Equal(t, int32(1), calls.Load())

	conflict := send(`{"employeeCode":"E2"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotencySkippedWithoutHeader(t *testing.T) {
	var calls atomic.Int32
	h := Idempotency(newMemIdempotency())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payroll/run", bytes.NewBufferString(`{}`))
		req = req.WithContext(WithUser(req.Context(), auth.UserContext{UserID: "u1"}))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, int32(2), calls.Load())
}
