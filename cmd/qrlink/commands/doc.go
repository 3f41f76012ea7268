// Package commands defines the qrlink CLI and wires dependencies for subcommands.
//
// Commands
//
//   - keys init|show|export|import|reset   Manage the local keypair
//   - contacts add|list|rm                 Manage the public key table
//   - seal <contact> <message>             Encrypt a one-shot message
//   - scan <input|@image>                  Classify scanned input and act on it
//   - chat offer | chat answer <offer>     Run a peer-to-peer chat
//
// Arguments that take scanned content accept "@path" to decode a QR code
// from an image file instead.
//
// # Implementation
//
// The root command loads the configuration through viper, sets up logging and
// builds the app (store, worker, services) before any subcommand runs. The
// hidden worker command skips that: it is the child side of worker.mode
// "process" and serves the crypto protocol on stdin and stdout.
package commands
