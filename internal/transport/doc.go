// Package transport accepts inbound HTTP requests from the network and hands
// them to the dispatcher.
//
// Two servers are provided. HTTPServer runs a gin engine on net/http and
// routes every request to the dispatcher from a catch-all handler.
// ConnServer accepts raw TCP connections, reads exactly one request from
// each, and lets the dispatch worker write the response and close the
// connection. Both answer with Connection: close.
package transport
