// Package worker runs every cryptographic operation behind a message boundary.
//
// # Protocol
//
// Requests and responses are JSON objects, one per line, tagged by "type" and
// correlated by "id". The server announces itself with a single
// {"type":"ready"} line and then answers requests in any order:
//
//	-> {"id":"7f..","type":"encrypt","public_key":"age1..","data":"hi"}
//	<- {"id":"7f..","type":"encrypted","encrypted_data":"YWdl.."}
//
// Decrypt answers either "decrypted" or "undecryptable"; the latter is the
// normal outcome for a payload that this key cannot open. Failures come back as
// {"type":"error","code":..,"message":..} with one of the Code values.
//
// # Modes
//
// StartInProcess serves over an io.Pipe pair on a goroutine. StartProcess spawns
// a child (normally `qrlink worker`) and talks to it over stdin/stdout. Both
// return a *Client, which implements domain.Cipher.
package worker
