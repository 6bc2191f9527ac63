package encoding

import (
	"sort"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avadispatch/internal/observability"
)

// Negotiator selects a response content type from an Accept header.
type Negotiator interface {
	// Negotiate returns the best supported type, or the default when the
	// header is empty or nothing matches.
	Negotiate(acceptHeader string) string
}

// negotiator implements the Negotiator interface.
type negotiator struct {
	logger         observability.Logger
	metrics        *Metrics
	supportedTypes []string
	defaultType    string
}

// NegotiatorOption is a functional option for configuring the negotiator.
type NegotiatorOption func(*negotiator)

// WithDefaultType sets the default content type.
func WithDefaultType(contentType string) NegotiatorOption {
	return func(n *negotiator) {
		n.defaultType = contentType
	}
}

// WithNegotiatorLogger sets the logger for the negotiator.
func WithNegotiatorLogger(logger observability.Logger) NegotiatorOption {
	return func(n *negotiator) {
		n.logger = logger
	}
}

// WithNegotiatorMetrics sets the metrics recorder for the negotiator.
func WithNegotiatorMetrics(metrics *Metrics) NegotiatorOption {
	return func(n *negotiator) {
		n.metrics = metrics
	}
}

// NewNegotiator creates a content type negotiator. Supported types are
// tried in order when the client's preferences tie.
func NewNegotiator(supportedTypes []string, opts ...NegotiatorOption) Negotiator {
	n := &negotiator{
		logger:         observability.NopLogger(),
		supportedTypes: supportedTypes,
		defaultType:    ContentTypeJSON,
	}

	for _, opt := range opts {
		opt(n)
	}

	if len(n.supportedTypes) == 0 {
		n.supportedTypes = []string{ContentTypeJSON}
	}

	return n
}

// Negotiate selects the best content type based on the Accept header.
func (n *negotiator) Negotiate(acceptHeader string) string {
	if acceptHeader == "" {
		n.metrics.recordNegotiation(n.defaultType, "default")
		return n.defaultType
	}

	mediaTypes := parseAcceptHeader(acceptHeader)
	sort.SliceStable(mediaTypes, func(i, j int) bool {
		return mediaTypes[i].quality > mediaTypes[j].quality
	})

	for _, mt := range mediaTypes {
		if mt.quality <= 0 {
			break
		}
		for _, supported := range n.supportedTypes {
			if matchMediaType(mt.mediaType, supported) {
				n.metrics.recordNegotiation(supported, "matched")
				return supported
			}
		}
	}

	n.logger.Debug("no matching content type, using default",
		observability.String("accept", acceptHeader),
		observability.String("default", n.defaultType))
	n.metrics.recordNegotiation(n.defaultType, "default")

	return n.defaultType
}

// mediaType represents a parsed media type from the Accept header.
type mediaType struct {
	mediaType string
	quality   float64
}

// parseAcceptHeader parses an Accept header into media types with quality
// values, e.g. "application/json, application/yaml;q=0.9, */*;q=0.8".
func parseAcceptHeader(header string) []mediaType {
	parts := strings.Split(header, ",")
	result := make([]mediaType, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		segments := strings.Split(part, ";")
		mt := mediaType{
			mediaType: strings.ToLower(strings.TrimSpace(segments[0])),
			quality:   1.0,
		}

		for _, segment := range segments[1:] {
			segment = strings.TrimSpace(segment)
			if qStr, ok := strings.CutPrefix(segment, "q="); ok {
				if q, err := strconv.ParseFloat(qStr, 64); err == nil {
					mt.quality = q
				}
			}
		}

		result = append(result, mt)
	}

	return result
}

// matchMediaType checks if a requested media type matches a supported type.
// Supports wildcards (*/*) and partial wildcards (application/*).
func matchMediaType(requested, supported string) bool {
	if requested == supported || requested == "*/*" {
		return true
	}

	if prefix, ok := strings.CutSuffix(requested, "/*"); ok {
		return strings.HasPrefix(supported, prefix+"/")
	}

	// Aliases registered for YAML and JSON.
	switch requested {
	case "application/x-yaml", "text/yaml":
		return supported == ContentTypeYAML
	case "text/json":
		return supported == ContentTypeJSON
	case "text/xml":
		return supported == ContentTypeXML
	}

	return false
}
