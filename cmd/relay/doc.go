// Package main runs the store-and-forward relay used by ciphergroup clients.
// It keeps one mailbox per recipient identifier and hands back everything
// newer than a client's cursor.
//
// HTTP API
//
//	POST /msg/{recipient}
//	    Store the request body (an opaque envelope) in the mailbox of
//	    {recipient}. Answers 201 with {"id","ts"}; ts is assigned by the relay
//	    in unix milliseconds and strictly increases within a mailbox.
//
//	GET /msg/{recipient}?since=N
//	    Return [{"id","ts","data"}] for every item with ts > N, oldest first.
//	    An unknown mailbox yields [].
//
//	GET /healthz
//	    Liveness probe.
//
// Configuration (environment, optionally from .env)
//
//	RELAY_ADDR          listen address (default :8080)
//	RELAY_DATABASE_URL  PostgreSQL URL; when empty, mailboxes live in memory
//	RELAY_RETENTION     eject items older than this on write (default 0, keep)
//	RELAY_TLS_CERT      certificate file; with RELAY_TLS_KEY enables HTTPS
//	RELAY_TLS_KEY       key file
//	RELAY_LOG_LEVEL     log level (default info)
//
// The relay never sees plaintext or private keys; it only stores ciphertext
// addressed by hashed public keys.
package main
