// Package relay talks to, and implements, the store-and-forward relay.
//
// The relay keeps one mailbox per recipient identifier and never looks inside
// the payloads it stores. Its HTTP API is
//
//	POST /msg/{recipient}          store the request body, answer 201 {"id","ts"}
//	GET  /msg/{recipient}?since=N  list items with ts > N, oldest first
//	GET  /healthz                  liveness
//
// Recipient identifiers are base64 and may contain '/', so they travel
// path-escaped.
//
// HTTP is the client side and implements domain.RelayClient. Server is the
// handler run by cmd/relay. Client errors wrap domain.ErrTransport and carry
// the method, path and status to aid diagnostics.
package relay
