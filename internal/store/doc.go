// Package store persists the local keypair and the contact list.
//
// Two backends implement domain.Store:
//   - FileStore (default): JSON files under the home directory, written
//     atomically via temp file and rename. keys.json holds the keypair, or
//     keys.json.enc when a passphrase is configured (scrypt-derived key,
//     ChaCha20-Poly1305). contacts.json holds the name to public key map.
//   - LevelStore: a goleveldb database under <home>/ldb using the fixed keys
//     "mySecretKey", "myPublicKey" and "keys".
//
// All methods are concurrency-safe.
package store
