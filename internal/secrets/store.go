// Package secrets stores the small set of key-management values the vault
// needs outside its database: the PIN verifier, the salts and the raw
// database key.
//
// Three backends are provided: an in-memory map for tests, a bbolt file for
// headless machines and the OS keychain via go-keyring.
package secrets

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/dmitrijs2005/docvault/internal/common"
)

// Logical secret names.
const (
	PinHash      = "pinHash"
	PinSalt      = "pinSalt"
	DBKeySalt    = "dbKeySalt"
	RawDBKey     = "rawDbKey"
	KDFAlgorithm = "kdfAlgorithm"
)

// Names lists every name the vault writes. Backends that cannot enumerate
// their entries use it to implement Clear.
var Names = []string{PinHash, PinSalt, DBKeySalt, RawDBKey, KDFAlgorithm}

// Store is an opaque name → bytes secret store.
//
// Get returns common.ErrNotFound for an absent name. Delete of an absent
// name is not an error. Backend failures wrap common.ErrStoreUnavailable.
type Store interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, value []byte) error
	Delete(ctx context.Context, name string) error
	Clear(ctx context.Context) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendMemory  = "memory"
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// FileName is the bbolt file created under the data directory by the file
// backend.
const FileName = "secrets.db"

// New opens the backend selected by name. dataDir is only used by the file
// backend; service is only used by the keyring backend.
func New(backend, dataDir, service string) (Store, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case "", BackendFile:
		return OpenBoltStore(filepath.Join(dataDir, FileName))
	case BackendKeyring:
		return NewKeyringStore(service), nil
	default:
		return nil, fmt.Errorf("%w: unknown secret backend %q", common.ErrInvalidArgument, backend)
	}
}
