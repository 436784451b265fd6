// Package app wires application dependencies for the CLI and the relay.
//
// It loads configuration from the environment (and an optional .env file),
// builds the concrete store, relay client and services from it, and exposes
// them via Wire and Session for commands to use.
package app
