package dispatch

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// ResponseWriter wraps an http.ResponseWriter and records whether and with
// which status the response was started.
type ResponseWriter struct {
	http.ResponseWriter
	status    int
	committed bool
	hijacked  bool
	written   int64
}

// TrackWriter returns w as a *ResponseWriter, wrapping it unless it already
// is one.
func TrackWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader implements http.ResponseWriter. Only the first call is
// forwarded.
func (rw *ResponseWriter) WriteHeader(status int) {
	if rw.committed {
		return
	}
	rw.status = status
	rw.committed = true
	rw.ResponseWriter.WriteHeader(status)
}

// Write implements http.ResponseWriter.
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.committed {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

// Flush implements http.Flusher when the underlying writer does.
func (rw *ResponseWriter) Flush() {
	if !rw.committed {
		rw.WriteHeader(http.StatusOK)
	}
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack implements http.Hijacker so WebSocket upgrades work through the
// wrapper. A hijacked response counts as committed with status 101.
func (rw *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("dispatch: underlying ResponseWriter does not support hijacking")
	}
	conn, brw, err := h.Hijack()
	if err == nil {
		rw.committed = true
		rw.hijacked = true
		rw.status = http.StatusSwitchingProtocols
	}
	return conn, brw, err
}

// Unwrap returns the wrapped writer for http.ResponseController.
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Status returns the response status, 200 if nothing was written yet.
func (rw *ResponseWriter) Status() int {
	return rw.status
}

// Committed reports whether the status line has been sent.
func (rw *ResponseWriter) Committed() bool {
	return rw.committed
}

// BytesWritten returns the number of body bytes written.
func (rw *ResponseWriter) BytesWritten() int64 {
	return rw.written
}
