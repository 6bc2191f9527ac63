package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// jsonCodec implements Codec for JSON encoding.
type jsonCodec struct {
	pretty bool
}

// NewJSONCodec creates a new JSON codec.
func NewJSONCodec(pretty bool) Codec {
	return &jsonCodec{pretty: pretty}
}

// Encode encodes the value to JSON bytes without a trailing newline.
func (c *jsonCodec) Encode(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, ErrNilValue
	}

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if c.pretty {
		encoder.SetIndent("", "  ")
	}

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}), nil
}

// Decode decodes JSON bytes into the value. Numbers decode as json.Number.
func (c *jsonCodec) Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodingFailed, err)
	}

	return nil
}

// ContentType returns the JSON content type.
func (c *jsonCodec) ContentType() string {
	return ContentTypeJSON
}
