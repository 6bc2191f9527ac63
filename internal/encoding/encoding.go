package encoding

import (
	"encoding/xml"
	"errors"
	"sort"
	"strings"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// Supported content types.
const (
	ContentTypeJSON = "application/json"
	ContentTypeYAML = "application/yaml"
	ContentTypeXML  = "application/xml"
	ContentTypeText = "text/plain; charset=utf-8"
	ContentTypeRaw  = "application/octet-stream"
)

// Common encoding errors.
var (
	// ErrUnsupportedContentType indicates that the content type is not supported.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrEncodingFailed indicates that encoding failed.
	ErrEncodingFailed = errors.New("encoding failed")

	// ErrDecodingFailed indicates that decoding failed.
	ErrDecodingFailed = errors.New("decoding failed")

	// ErrNilValue indicates that the value to encode is nil.
	ErrNilValue = errors.New("nil value")
)

// Encoder encodes data to bytes.
type Encoder interface {
	// Encode encodes the value to bytes.
	Encode(v interface{}) ([]byte, error)

	// ContentType returns the content type for this encoder.
	ContentType() string
}

// Decoder decodes bytes to data.
type Decoder interface {
	// Decode decodes the data into the value.
	Decode(data []byte, v interface{}) error
}

// Codec combines Encoder and Decoder.
type Codec interface {
	Encoder
	Decoder
}

// RawMessage is a handler result written verbatim with its own content type.
type RawMessage struct {
	ContentType string
	Body        []byte
}

// ErrorBody is the serialized form of a failure: {"error": "..."}.
type ErrorBody struct {
	XMLName xml.Name `json:"-" yaml:"-" xml:"error"`
	Error   string   `json:"error" yaml:"error" xml:",chardata"`
}

// NewErrorBody creates an ErrorBody.
func NewErrorBody(message string) ErrorBody {
	return ErrorBody{Error: message}
}

// Registry maps content types to codecs.
type Registry struct {
	logger  observability.Logger
	metrics *Metrics
	codecs  map[string]Codec
}

// RegistryOption is a functional option for configuring the registry.
type RegistryOption func(*Registry)

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics *Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// WithPrettyJSON makes the JSON codec indent its output.
func WithPrettyJSON(pretty bool) RegistryOption {
	return func(r *Registry) {
		codec := NewJSONCodec(pretty)
		r.codecs[ContentTypeJSON] = codec
		r.codecs["text/json"] = codec
	}
}

// NewRegistry creates a registry with the JSON, YAML and XML codecs.
func NewRegistry(logger observability.Logger, opts ...RegistryOption) *Registry {
	if logger == nil {
		logger = observability.NopLogger()
	}

	r := &Registry{
		logger: logger,
		codecs: make(map[string]Codec),
	}

	jsonCodec := NewJSONCodec(false)
	r.codecs[ContentTypeJSON] = jsonCodec
	r.codecs["text/json"] = jsonCodec

	yamlCodec := NewYAMLCodec()
	r.codecs[ContentTypeYAML] = yamlCodec
	r.codecs["application/x-yaml"] = yamlCodec
	r.codecs["text/yaml"] = yamlCodec

	xmlCodec := NewXMLCodec()
	r.codecs[ContentTypeXML] = xmlCodec
	r.codecs["text/xml"] = xmlCodec

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Get returns the codec for a content type. Parameters such as charset
// are ignored.
func (r *Registry) Get(contentType string) (Codec, error) {
	codec, ok := r.codecs[normalizeContentType(contentType)]
	if !ok {
		r.logger.Debug("unsupported content type",
			observability.String("contentType", contentType))
		return nil, ErrUnsupportedContentType
	}
	return &instrumentedCodec{Codec: codec, metrics: r.metrics}, nil
}

// Default returns the JSON codec.
func (r *Registry) Default() Codec {
	codec, _ := r.Get(ContentTypeJSON)
	return codec
}

// SupportedTypes returns the primary content type of each codec, JSON first.
func (r *Registry) SupportedTypes() []string {
	seen := make(map[string]bool)
	types := make([]string, 0, len(r.codecs))

	for _, codec := range r.codecs {
		ct := codec.ContentType()
		if !seen[ct] {
			seen[ct] = true
			types = append(types, ct)
		}
	}

	sort.Slice(types, func(i, j int) bool {
		if (types[i] == ContentTypeJSON) != (types[j] == ContentTypeJSON) {
			return types[i] == ContentTypeJSON
		}
		return types[i] < types[j]
	})
	return types
}

// normalizeContentType strips parameters and lower-cases a content type.
func normalizeContentType(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// instrumentedCodec records encode and decode outcomes.
type instrumentedCodec struct {
	Codec
	metrics *Metrics
}

func (c *instrumentedCodec) Encode(v interface{}) ([]byte, error) {
	data, err := c.Codec.Encode(v)
	c.metrics.recordEncode(c.ContentType(), err)
	return data, err
}

func (c *instrumentedCodec) Decode(data []byte, v interface{}) error {
	err := c.Codec.Decode(data, v)
	c.metrics.recordDecode(c.ContentType(), err)
	return err
}
