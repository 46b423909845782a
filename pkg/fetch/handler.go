package fetch

import (
	"net/http"
)

// Handler answers fetch-style requests.
type Handler interface {
	Fetch(req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(req *Request) (*Response, error)

// Fetch calls f(req).
func (f HandlerFunc) Fetch(req *Request) (*Response, error) {
	return f(req)
}

// ServeFunc adapts the incoming request, runs h and writes the response back.
// Errors from adaptation, from h or from writing are returned to the caller
// untouched so a surrounding catch-all can decide how to answer.
func ServeFunc(a Adapter, h Handler) func(w http.ResponseWriter, r *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		req, err := a.Request(r)
		if err != nil {
			return err
		}
		resp, err := h.Fetch(req)
		if err != nil {
			return err
		}
		return WriteHTTP(w, resp)
	}
}

// Serve wraps h as an http.Handler. Errors are answered with their status
// code and a plain text body.
func Serve(h Handler) http.Handler {
	serve := ServeFunc(Adapter{}, h)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := serve(w, r); err != nil {
			code := StatusCode(err)
			http.Error(w, http.StatusText(code), code)
		}
	})
}

// FromHandler exposes an http.Handler as a fetch Handler by replaying the
// request into it and recording the output.
func FromHandler(h http.Handler) Handler {
	return HandlerFunc(func(req *Request) (*Response, error) {
		r, err := req.HTTP()
		if err != nil {
			return nil, err
		}
		rec := NewRecorder()
		h.ServeHTTP(rec, r)
		return rec.Response(), nil
	})
}
