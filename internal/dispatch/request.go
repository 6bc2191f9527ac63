package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/vyrodovalexey/avadispatch/internal/encoding"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

// HTTP header names used by the dispatcher.
const (
	HeaderRequestID   = "X-Request-ID"
	HeaderContentType = "Content-Type"
	HeaderAccept      = "Accept"
	HeaderAllow       = "Allow"
	HeaderRetryAfter  = "Retry-After"
	HeaderConnection  = "Connection"
)

// Request is a dispatcher-owned copy of an inbound request. Nothing in it
// aliases the transport's buffers. URI is the request target in origin
// form, query included.
type Request struct {
	ID         string
	Method     string
	URI        string
	Path       string
	RawQuery   string
	Proto      string
	Host       string
	RemoteAddr string
	Header     http.Header
	Body       []byte

	// Params holds the values captured by {name} pattern segments.
	Params map[string]string

	ctx    context.Context
	codecs *encoding.Registry
}

// NewRequest copies r. The body is read in full; a body longer than
// maxBody bytes fails with util.ErrBodyTooLarge. A non-positive maxBody
// disables the limit.
//
// The copy keeps the values of r's context (trace and deadline-free
// metadata) but not its cancellation: the request runs to completion even
// if the transport lets go of the original.
func NewRequest(r *http.Request, maxBody int64) (*Request, error) {
	body, err := readBody(r.Body, maxBody)
	if err != nil {
		return nil, err
	}

	id := r.Header.Get(HeaderRequestID)
	if id == "" {
		id = uuid.New().String()
	}

	// Routing works on the origin form. An absolute-form target
	// (http://host/path) is reduced to its path and query.
	uri := r.RequestURI
	if uri == "" || (uri[0] != '/' && uri != "*") {
		uri = r.URL.RequestURI()
	}

	return &Request{
		ID:         id,
		Method:     r.Method,
		URI:        uri,
		Path:       r.URL.Path,
		RawQuery:   r.URL.RawQuery,
		Proto:      r.Proto,
		Host:       r.Host,
		RemoteAddr: r.RemoteAddr,
		Header:     r.Header.Clone(),
		Body:       body,
		ctx:        context.WithoutCancel(r.Context()),
	}, nil
}

func readBody(body io.ReadCloser, limit int64) ([]byte, error) {
	if body == nil || body == http.NoBody {
		return nil, nil
	}
	defer body.Close()

	reader := io.Reader(body)
	if limit > 0 {
		reader = io.LimitReader(body, limit+1)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: limit is %d bytes", util.ErrBodyTooLarge, limit)
	}
	if buf.Len() == 0 {
		return nil, nil
	}
	return buf.Bytes(), nil
}

// Context returns the request context. It is never nil.
func (r *Request) Context() context.Context {
	if r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("nil context")
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// Param returns a path parameter, or "" when absent.
func (r *Request) Param(name string) string {
	return r.Params[name]
}

// Query parses the raw query string.
func (r *Request) Query() url.Values {
	values, _ := url.ParseQuery(r.RawQuery)
	return values
}

// Decode unmarshals the body with the codec named by the Content-Type
// header, defaulting to JSON.
func (r *Request) Decode(v any) error {
	if len(r.Body) == 0 {
		return util.NewStatusError(http.StatusBadRequest, "request body is empty")
	}

	codecs := r.codecs
	if codecs == nil {
		codecs = defaultCodecs
	}

	codec := codecs.Default()
	if ct := r.Header.Get(HeaderContentType); ct != "" {
		c, err := codecs.Get(ct)
		if err != nil {
			return util.NewStatusErrorWithCause(http.StatusUnsupportedMediaType,
				fmt.Sprintf("unsupported content type %q", ct), err)
		}
		codec = c
	}

	if err := codec.Decode(r.Body, v); err != nil {
		if errors.Is(err, encoding.ErrDecodingFailed) {
			return util.NewStatusErrorWithCause(http.StatusBadRequest, "malformed request body", err)
		}
		return err
	}
	return nil
}
