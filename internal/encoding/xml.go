package encoding

import (
	"bytes"
	"encoding/xml"
	"fmt"
)

// xmlCodec implements Codec for XML encoding. Only values with an XML
// mapping (structs, slices of structs) encode; maps do not.
type xmlCodec struct{}

// NewXMLCodec creates a new XML codec.
func NewXMLCodec() Codec {
	return &xmlCodec{}
}

// Encode encodes the value to XML bytes with an XML header.
func (c *xmlCodec) Encode(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, ErrNilValue
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)

	encoder := xml.NewEncoder(&buf)
	encoder.Indent("", "  ")

	if err := encoder.Encode(v); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodingFailed, err)
	}

	return buf.Bytes(), nil
}

// Decode decodes XML bytes into the value.
func (c *xmlCodec) Decode(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}

	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrDecodingFailed, err)
	}

	return nil
}

// ContentType returns the XML content type.
func (c *xmlCodec) ContentType() string {
	return ContentTypeXML
}
