package store

import (
	"fmt"
	"strings"

	"qrlink/internal/domain"
)

// Backend names accepted by Open.
const (
	BackendFile    = "file"
	BackendLevelDB = "leveldb"
)

// Open returns the store for backend rooted at dir.
func Open(backend, dir, passphrase string) (domain.Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		s, err := NewFileStore(dir, passphrase)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendLevelDB:
		s, err := OpenLevelStore(dir, passphrase)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q (want %q or %q)", backend, BackendFile, BackendLevelDB)
	}
}
