package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/internal/common/middleware"
	"github.com/tansive/sessionactions/internal/config"
)

var testNow = time.UnixMilli(1700000000000)

func newTestServer(t *testing.T) *ActionServer {
	t.Helper()
	s, err := CreateNewServer(action.DefaultRegistry(action.WithClock(action.FixedClock(testNow))))
	require.NoError(t, err, "create new server")
	s.MountHandlers()
	return s
}

// useConfig installs cfg for the duration of the test.
func useConfig(t *testing.T, mutate func(*config.ConfigParam)) {
	t.Helper()
	prev := config.Config()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	config.SetConfig(cfg)
	t.Cleanup(func() { config.SetConfig(prev) })
}

func executeTestRequest(t *testing.T, s *ActionServer, req *http.Request) *httptest.ResponseRecorder {
	if s == nil {
		s = newTestServer(t)
	}
	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func checkHeader(t *testing.T, h http.Header) {
	expected := "application/json"
	got := h.Get("Content-Type")
	assert.Equal(t, expected, got, "Content-Type expected %s, got %s", expected, got)
	assert.NotEmpty(t, h.Get(middleware.RequestIDHeader), "No Request Id")
}

func compareJson(t *testing.T, expected any, actual string) {
	var j []byte
	var err error

	switch v := expected.(type) {
	case string:
		if json.Valid([]byte(v)) {
			j = []byte(v)
		} else {
			j, err = json.Marshal(v)
			assert.NoError(t, err, "json marshal")
		}
	case []byte:
		if json.Valid(v) {
			j = v
		} else {
			j, err = json.Marshal(string(v))
			assert.NoError(t, err, "json marshal")
		}
	default:
		j, err = json.Marshal(expected)
		assert.NoError(t, err, "json marshal")
	}

	assert.JSONEq(t, string(j), actual, "Expected: %v\nGot: %v\n", expected, actual)
}

func newJsonRequest(t *testing.T, method, url string, data any) *http.Request {
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	setRequestBodyAndHeader(t, req, data)
	return req
}

func setRequestBodyAndHeader(t *testing.T, req *http.Request, data interface{}) {
	// raw strings are sent as is so tests can post malformed JSON
	var jsonData []byte
	if s, ok := data.(string); ok {
		jsonData = []byte(s)
	} else if b, ok := data.([]byte); ok {
		jsonData = b
	} else {
		var err error
		jsonData, err = json.Marshal(data)
		assert.NoError(t, err, "Failed to marshal data into JSON")
	}

	req.Body = io.NopCloser(bytes.NewReader(jsonData))
	req.ContentLength = int64(len(jsonData))
	req.Header.Set("Content-Type", "application/json")
}
