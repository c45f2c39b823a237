package httpx

import (
	"bufio"
	"net"
	"net/http"
	"sync"
)

// ResponseWriter wraps http.ResponseWriter and records whether, and with which
// status, the header was written. Middleware uses it to avoid double writes.
// It is safe for use by a handler goroutine and a watchdog at the same time.
type ResponseWriter struct {
	http.ResponseWriter
	mu      sync.Mutex
	written bool
	claimed bool
	status  int
}

// NewResponseWriter creates a new ResponseWriter wrapping the provided http.ResponseWriter.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w}
}

// WriteHeader implements http.ResponseWriter.WriteHeader.
// If headers were already written, or the writer was claimed, this is a no-op.
func (rw *ResponseWriter) WriteHeader(code int) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.writeHeaderLocked(code)
}

func (rw *ResponseWriter) writeHeaderLocked(code int) {
	if rw.written || rw.claimed {
		return
	}
	rw.status = code
	rw.written = true
	rw.ResponseWriter.WriteHeader(code)
}

// Write implements http.ResponseWriter.Write.
// If headers were not written, writes StatusOK (200) header first.
// Writes after Claim fail with http.ErrHandlerTimeout.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.claimed {
		return 0, http.ErrHandlerTimeout
	}
	if !rw.written {
		rw.writeHeaderLocked(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Claim takes the response away from the wrapped handler. It returns false if
// the handler already started writing.
func (rw *ResponseWriter) Claim() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.written || rw.claimed {
		return false
	}
	rw.claimed = true
	return true
}

// Written reports whether headers or body were written.
func (rw *ResponseWriter) Written() bool {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return rw.written
}

// Status returns the status code. Returns http.StatusOK (200) if not set.
func (rw *ResponseWriter) Status() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.status == 0 {
		return http.StatusOK
	}
	return rw.status
}

// Flush implements http.Flusher if the underlying writer supports it.
func (rw *ResponseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker if the underlying writer supports it.
func (rw *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrHijacked
	}
	return hj.Hijack()
}
