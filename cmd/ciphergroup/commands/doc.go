// Package commands defines the ciphergroup CLI and wires dependencies for subcommands.
//
// Commands
//
//   - init                          Create the local identity
//   - whoami                        Print the mailbox identifier and public key
//   - friend add <name> <file|->    Trust a public key under a name
//   - friend list                   List friends
//   - group create <name> <friend>  Create a group and announce it
//   - group list                    List known groups
//   - group history <guid>          Print the message log of a group
//   - send <guid> <text>            Send a line of text to a group
//   - recv                          Poll the relay once
//   - listen                        Poll the relay until interrupted
//   - chat <guid>                   Interactive group chat
//
// # Implementation
//
// The root command loads configuration and builds the dependency graph before
// any subcommand runs. Commands that need the private key unlock the state
// with the passphrase from -p, or prompt for it on a terminal.
package commands
