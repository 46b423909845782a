package fetch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"

	ssrerrors "github.com/vango-dev/ssrhost/internal/errors"
)

// Request is a fully buffered, fetch-style HTTP request.
type Request struct {
	// Method is the HTTP method (GET, POST, ...).
	Method string

	// URL is the absolute request URL. The scheme is always http and the
	// host comes from the Host header.
	URL *url.URL

	// Header holds every header value of the incoming request.
	Header http.Header

	// Body is the complete request body. It is nil for GET and HEAD.
	Body []byte

	ctx context.Context
}

// Context returns the request's context. If unset, returns Background.
func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// HTTP converts the request back into a *http.Request carrying the same
// method, URL, headers, body and context.
func (r *Request) HTTP() (*http.Request, error) {
	var body io.Reader = http.NoBody
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, r.URL.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header = r.Header.Clone()
	if req.Header == nil {
		req.Header = make(http.Header)
	}
	req.RequestURI = r.URL.RequestURI()
	return req, nil
}

// Adapter converts between net/http and fetch-style values.
type Adapter struct {
	// MaxBodyBytes limits how much of a request body is buffered.
	// Zero means no limit.
	MaxBodyBytes int64
}

// FromHTTP builds a Request from an incoming *http.Request using the default
// Adapter.
func FromHTTP(r *http.Request) (*Request, error) {
	return Adapter{}.Request(r)
}

// Request builds a Request from an incoming *http.Request. The body is
// drained completely unless the method is GET or HEAD.
func (a Adapter) Request(r *http.Request) (*Request, error) {
	host := r.Host
	if host == "" {
		host = r.Header.Get("Host")
	}
	if host == "" {
		host = "localhost"
	}

	uri := "/"
	if r.URL != nil {
		uri = r.URL.RequestURI()
	}

	u, err := url.Parse("http://" + host + uri)
	if err != nil {
		return nil, &HTTPError{Code: http.StatusBadRequest, Message: "invalid request URL", Err: err}
	}

	header := make(http.Header, len(r.Header))
	for key, values := range r.Header {
		for _, v := range values {
			header.Add(key, v)
		}
	}

	req := &Request{
		Method: r.Method,
		URL:    u,
		Header: header,
		ctx:    r.Context(),
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead && r.Body != nil {
		body, err := a.readBody(r.Body)
		if err != nil {
			return nil, err
		}
		req.Body = body
	}

	return req, nil
}

func (a Adapter) readBody(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()

	var reader io.Reader = rc
	if a.MaxBodyBytes > 0 {
		reader = io.LimitReader(rc, a.MaxBodyBytes+1)
	}

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, ssrerrors.New("E200").Wrap(err)
	}
	if a.MaxBodyBytes > 0 && int64(len(raw)) > a.MaxBodyBytes {
		return nil, &HTTPError{
			Code:    http.StatusRequestEntityTooLarge,
			Message: "request body too large",
			Err:     ssrerrors.New("E201"),
		}
	}
	if raw == nil {
		raw = []byte{}
	}
	return raw, nil
}

// HTTPError is an error that carries an HTTP status code.
type HTTPError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// StatusCode returns the HTTP status code for the error.
func (e *HTTPError) StatusCode() int {
	return e.Code
}

// Unwrap returns the underlying error.
func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusCode returns the status carried by err, or 500 when err does not
// carry one.
func StatusCode(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	return http.StatusInternalServerError
}
