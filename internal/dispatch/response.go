package dispatch

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avadispatch/internal/encoding"
	"github.com/vyrodovalexey/avadispatch/internal/observability"
	"github.com/vyrodovalexey/avadispatch/internal/util"
)

var defaultCodecs = encoding.NewRegistry(nil)

// Response is the outcome of one dispatch, ready to be written once.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Write copies the response to w.
func (r *Response) Write(w http.ResponseWriter) error {
	h := w.Header()
	for k, v := range r.Header {
		h[k] = v
	}
	h.Set("Content-Length", strconv.Itoa(len(r.Body)))
	w.WriteHeader(r.Status)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

// Responder is the transport side of a dispatch. Respond is called exactly
// once per request, then Close, which must release the connection.
type Responder interface {
	Respond(resp *Response) error
	Close() error
}

// ResponseBuilder turns a handler result or failure into a Response,
// serializing bodies with the codec negotiated from the Accept header.
type ResponseBuilder struct {
	codecs     *encoding.Registry
	negotiator encoding.Negotiator
	logger     observability.Logger
}

// NewResponseBuilder creates a builder over codecs. A nil registry uses
// the default JSON, YAML and XML codecs.
func NewResponseBuilder(
	codecs *encoding.Registry,
	negotiator encoding.Negotiator,
	logger observability.Logger,
) *ResponseBuilder {
	if codecs == nil {
		codecs = defaultCodecs
	}
	if negotiator == nil {
		negotiator = encoding.NewNegotiator(codecs.SupportedTypes())
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ResponseBuilder{codecs: codecs, negotiator: negotiator, logger: logger}
}

// Build maps a dispatch outcome to a response:
//
//	success           200, serialized result (nil result: empty body)
//	NotFound          404, empty body
//	MethodNotAllowed  405, empty body, Allow header
//	other failures    util.StatusCode(err), {"error": "..."}
func (b *ResponseBuilder) Build(ctx context.Context, req *Request, result any, err error) *Response {
	resp := &Response{
		Status: http.StatusOK,
		Header: make(http.Header),
	}
	resp.Header.Set(HeaderConnection, "close")
	if req != nil && req.ID != "" {
		resp.Header.Set(HeaderRequestID, req.ID)
	}

	if err != nil {
		b.failure(ctx, req, resp, err)
		return resp
	}

	switch v := result.(type) {
	case nil:
	case []byte:
		resp.Header.Set(HeaderContentType, encoding.ContentTypeRaw)
		resp.Body = v
	case encoding.RawMessage:
		b.raw(resp, v)
	case *encoding.RawMessage:
		if v != nil {
			b.raw(resp, *v)
		}
	default:
		codec := b.codecFor(req)
		body, encErr := codec.Encode(v)
		if encErr != nil && codec.ContentType() != b.codecs.Default().ContentType() {
			// Not every value has an XML or YAML form; answer in the
			// default format rather than fail a successful call.
			b.logger.WithContext(ctx).Debug("negotiated codec cannot encode result, using default",
				observability.String("content_type", codec.ContentType()),
				observability.Error(encErr),
			)
			codec = b.codecs.Default()
			body, encErr = codec.Encode(v)
		}
		if encErr != nil {
			b.logger.WithContext(ctx).Error("failed to encode response",
				observability.String("content_type", codec.ContentType()),
				observability.Error(encErr),
			)
			b.failure(ctx, req, resp, encErr)
			return resp
		}
		resp.Header.Set(HeaderContentType, codec.ContentType())
		resp.Body = body
	}

	return resp
}

func (b *ResponseBuilder) raw(resp *Response, msg encoding.RawMessage) {
	ct := msg.ContentType
	if ct == "" {
		ct = encoding.ContentTypeRaw
	}
	resp.Header.Set(HeaderContentType, ct)
	resp.Body = msg.Body
}

func (b *ResponseBuilder) failure(ctx context.Context, req *Request, resp *Response, err error) {
	resp.Status = util.StatusCode(err)

	switch resp.Status {
	case http.StatusNotFound:
		return
	case http.StatusMethodNotAllowed:
		var mna *util.MethodNotAllowedError
		if errors.As(err, &mna) && len(mna.Allowed) > 0 {
			resp.Header.Set(HeaderAllow, allowHeader(mna.Allowed))
		}
		return
	case http.StatusTooManyRequests:
		var rle *util.RateLimitError
		if errors.As(err, &rle) {
			resp.Header.Set(HeaderRetryAfter, strconv.Itoa(retryAfterSeconds(rle)))
		}
	}

	codec := b.codecFor(req)
	body, encErr := codec.Encode(encoding.NewErrorBody(errorMessage(err)))
	if encErr != nil {
		b.logger.WithContext(ctx).Error("failed to encode error response", observability.Error(encErr))
		resp.Header.Set(HeaderContentType, encoding.ContentTypeText)
		resp.Body = []byte(http.StatusText(resp.Status))
		return
	}
	resp.Header.Set(HeaderContentType, codec.ContentType())
	resp.Body = body
}

func (b *ResponseBuilder) codecFor(req *Request) encoding.Codec {
	accept := ""
	if req != nil {
		accept = req.Header.Get(HeaderAccept)
	}
	codec, err := b.codecs.Get(b.negotiator.Negotiate(accept))
	if err != nil {
		return b.codecs.Default()
	}
	return codec
}

// errorMessage is the client-facing description of err. A StatusError
// speaks for itself; handler failures are reported by their cause.
func errorMessage(err error) string {
	var se *util.StatusError
	if errors.As(err, &se) {
		return se.Error()
	}
	var he *util.HandlerError
	if errors.As(err, &he) && he.Cause != nil {
		return he.Cause.Error()
	}
	return err.Error()
}

// allowHeader lists the allowed methods. A wildcard route accepts anything,
// which cannot be the reason for a 405, so it never appears here.
func allowHeader(allowed []string) string {
	methods := make([]string, 0, len(allowed))
	for _, m := range allowed {
		if m != "*" {
			methods = append(methods, m)
		}
	}
	return strings.Join(methods, ", ")
}

func retryAfterSeconds(err *util.RateLimitError) int {
	secs := int(math.Ceil(err.RetryAfter.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}
