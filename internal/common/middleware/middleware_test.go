package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/sessionactions/internal/common/httpx"
	"github.com/tansive/sessionactions/internal/common/logtrace"
)

func TestRequestLoggerSetsRequestId(t *testing.T) {
	var seen string
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logtrace.RequestIdFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, rr.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	req.Header.Set(RequestIDHeader, "caller-id")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "caller-id", seen)
	assert.Equal(t, "caller-id", rr.Header().Get(RequestIDHeader))
}

func TestPanicHandler(t *testing.T) {
	h := PanicHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"error":"unable to process request"}`, rr.Body.String())
}

func TestPanicHandlerAfterWrite(t *testing.T) {
	h := PanicHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
}

func TestSetTimeout(t *testing.T) {
	release := make(chan struct{})
	slow := SetTimeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		<-release
	}))

	rr := httptest.NewRecorder()
	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()
	slow.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusRequestTimeout, rr.Code)
	assert.Equal(t, "20ms", rr.Header().Get(TimeoutHeader))
	assert.JSONEq(t, `{"error":"request timed out"}`, rr.Body.String())
}

func TestSetTimeoutFastHandler(t *testing.T) {
	fast := SetTimeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.SendJsonRsp(r.Context(), w, http.StatusOK, `{"ok":true}`)
	}))
	rr := httptest.NewRecorder()
	fast.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/run", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true}`, rr.Body.String())
}
