package fetch

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// Response is a fully buffered, fetch-style HTTP response.
type Response struct {
	// Status is the HTTP status code. Zero is treated as 200.
	Status int

	// Header holds the response headers.
	Header http.Header

	// Body is the complete response body. Nil means no body.
	Body []byte
}

// NewResponse creates a response with the given status, body and headers.
func NewResponse(status int, body []byte) *Response {
	return &Response{
		Status: status,
		Header: make(http.Header),
		Body:   body,
	}
}

// JSON creates a response with v encoded as JSON. HTML characters are not
// escaped.
func JSON(status int, v any) (*Response, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	resp := NewResponse(status, bytes.TrimRight(buf.Bytes(), "\n"))
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

// Text creates a plain text response.
func Text(status int, body string) *Response {
	resp := NewResponse(status, []byte(body))
	resp.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	return resp
}

// WriteHTTP copies resp onto w: headers first, then status, then the whole
// body. A response without a body only writes the status.
func WriteHTTP(w http.ResponseWriter, resp *Response) error {
	dst := w.Header()
	for key, values := range resp.Header {
		dst.Del(key)
		for _, v := range values {
			dst.Add(key, v)
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)

	if resp.Body == nil {
		return nil
	}
	_, err := w.Write(resp.Body)
	return err
}

// Recorder is an http.ResponseWriter that buffers everything written to it
// so the result can be returned as a Response.
type Recorder struct {
	header      http.Header
	status      int
	body        bytes.Buffer
	wroteHeader bool
	wroteBody   bool
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{header: make(http.Header)}
}

// Header implements http.ResponseWriter.
func (r *Recorder) Header() http.Header {
	return r.header
}

// WriteHeader implements http.ResponseWriter. Only the first call counts.
func (r *Recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
}

// Write implements http.ResponseWriter.
func (r *Recorder) Write(p []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	r.wroteBody = true
	return r.body.Write(p)
}

// Response returns the captured response. The body is nil when nothing was
// written.
func (r *Recorder) Response() *Response {
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	resp := &Response{
		Status: status,
		Header: r.header.Clone(),
	}
	if r.wroteBody {
		resp.Body = bytes.Clone(r.body.Bytes())
	}
	return resp
}
