package secrets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service name entries are filed under.
const DefaultService = "docvault"

// KeyringStore keeps secrets in the OS keychain (Keychain, Secret Service,
// Windows Credential Manager). Values are base64 encoded because keychains
// store strings.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	if service == "" {
		service = DefaultService
	}
	return &KeyringStore{service: service}
}

func (k *KeyringStore) Get(_ context.Context, name string) ([]byte, error) {
	s, err := keyring.Get(k.service, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrStoreUnavailable, name, err)
	}

	v, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", common.ErrStoreUnavailable, name, err)
	}
	return v, nil
}

func (k *KeyringStore) Set(_ context.Context, name string, value []byte) error {
	if err := keyring.Set(k.service, name, base64.StdEncoding.EncodeToString(value)); err != nil {
		return fmt.Errorf("%w: set %s: %v", common.ErrStoreUnavailable, name, err)
	}
	return nil
}

func (k *KeyringStore) Delete(_ context.Context, name string) error {
	err := keyring.Delete(k.service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: delete %s: %v", common.ErrStoreUnavailable, name, err)
	}
	return nil
}

// Clear removes every name in Names. Keychains cannot be enumerated per
// service portably.
func (k *KeyringStore) Clear(ctx context.Context) error {
	for _, name := range Names {
		if err := k.Delete(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

func (k *KeyringStore) Close() error { return nil }
