// Package encoding serializes handler results for the dispatcher.
//
// Codecs are provided for:
//
//   - JSON (application/json), the default
//   - YAML (application/yaml)
//   - XML (application/xml)
//
// A Negotiator picks the codec from the request's Accept header. Values of
// type RawMessage and []byte bypass the codecs and are written verbatim.
//
// # Example Usage
//
//	codecs := encoding.NewRegistry(logger)
//	negotiator := encoding.NewNegotiator(codecs.SupportedTypes())
//
//	codec, _ := codecs.Get(negotiator.Negotiate(req.Header.Get("Accept")))
//	body, err := codec.Encode(result)
//
// All codecs and negotiators are safe for concurrent use.
package encoding
