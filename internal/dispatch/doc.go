// Package dispatch owns the per-request lifecycle between a transport and
// the registered handlers.
//
// A transport hands each decoded request to Dispatch, which copies it and
// returns at once. A pool worker then resolves the route, invokes the
// handler, builds the response, writes it through the transport's
// Responder and closes the connection:
//
//	Received -> Copied -> Queued -> Resolving -> Handling -> Responding -> Closed
//
// Handler failures and panics are contained in the request that caused
// them. Connections are never reused.
package dispatch
