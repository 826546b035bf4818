// Package services ties the vault's components into the session the
// command line works with: PIN management, the lock state machine and the
// unlocked Vault handle.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/logging"
	"github.com/dmitrijs2005/docvault/internal/secrets"
)

// PinService manages the PIN verifier and the database key in the secret
// store.
//
// The database key is random and independent of the PIN; the PIN only
// gates access to it. Changing the PIN therefore never re-encrypts data.
type PinService struct {
	secrets secrets.Store
	kdf     cryptox.KDF
	logger  logging.Logger
}

// PinMaterial is the non-secret PIN data mirrored into the settings row.
type PinMaterial struct {
	Hash      []byte
	Salt      []byte
	DBKeySalt []byte
}

func NewPinService(store secrets.Store, kdf cryptox.KDF, logger logging.Logger) *PinService {
	if kdf == nil {
		kdf = cryptox.PBKDF2{Iterations: cryptox.DefaultPBKDF2Iterations}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &PinService{secrets: store, kdf: kdf, logger: logger.With("component", "pin")}
}

// IsSet reports whether a PIN verifier is stored.
func (p *PinService) IsSet(ctx context.Context) (bool, error) {
	_, err := p.secrets.Get(ctx, secrets.PinHash)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, common.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// SetInitial stores the first PIN and generates the database key.
func (p *PinService) SetInitial(ctx context.Context, pin []byte) error {
	if len(pin) == 0 {
		return fmt.Errorf("%w: empty pin", common.ErrInvalidArgument)
	}
	set, err := p.IsSet(ctx)
	if err != nil {
		return err
	}
	if set {
		return common.ErrPinAlreadySet
	}

	key := cryptox.NewKey()
	defer common.WipeByteArray(key)

	// The hash goes last: its presence is what marks the PIN as set.
	if err := p.secrets.Set(ctx, secrets.RawDBKey, key); err != nil {
		return err
	}
	if err := p.secrets.Set(ctx, secrets.DBKeySalt, cryptox.NewSalt()); err != nil {
		return err
	}
	if err := p.storeVerifier(ctx, pin); err != nil {
		return err
	}
	p.logger.Info(ctx, "pin set", "kdf", cryptox.Describe(p.kdf))
	return nil
}

// Verify checks pin and returns the database key. The caller owns the
// returned slice and should wipe it.
func (p *PinService) Verify(ctx context.Context, pin []byte) ([]byte, error) {
	hash, err := p.secrets.Get(ctx, secrets.PinHash)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrPinNotSet
		}
		return nil, err
	}
	salt, err := p.secrets.Get(ctx, secrets.PinSalt)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: pin salt missing", common.ErrKeyMissing)
		}
		return nil, err
	}
	kdf, err := p.storedKDF(ctx)
	if err != nil {
		return nil, err
	}

	derived := kdf.DeriveKey(pin, salt)
	defer common.WipeByteArray(derived)
	if subtle.ConstantTimeCompare(hash, cryptox.MakeVerifier(derived)) == 0 {
		p.logger.Warn(ctx, "incorrect pin")
		return nil, common.ErrIncorrectPin
	}

	key, err := p.secrets.Get(ctx, secrets.RawDBKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrKeyMissing
		}
		return nil, err
	}
	if len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("%w: stored key has %d bytes", common.ErrKeyMissing, len(key))
	}
	return key, nil
}

// Change replaces the PIN after verifying oldPin. The database key is kept.
func (p *PinService) Change(ctx context.Context, oldPin, newPin []byte) error {
	if len(newPin) == 0 {
		return fmt.Errorf("%w: empty pin", common.ErrInvalidArgument)
	}
	key, err := p.Verify(ctx, oldPin)
	if err != nil {
		return err
	}
	common.WipeByteArray(key)

	if err := p.storeVerifier(ctx, newPin); err != nil {
		return err
	}
	p.logger.Info(ctx, "pin changed")
	return nil
}

// Material returns the values mirrored into the settings row.
func (p *PinService) Material(ctx context.Context) (*PinMaterial, error) {
	m := &PinMaterial{}
	for _, it := range []struct {
		name string
		dst  *[]byte
	}{
		{secrets.PinHash, &m.Hash},
		{secrets.PinSalt, &m.Salt},
		{secrets.DBKeySalt, &m.DBKeySalt},
	} {
		v, err := p.secrets.Get(ctx, it.name)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", it.name, err)
		}
		*it.dst = v
	}
	return m, nil
}

// storeVerifier writes a fresh salt, the KDF descriptor and the verifier.
// If any write fails, the values already written are put back, so the
// previous PIN keeps working.
func (p *PinService) storeVerifier(ctx context.Context, pin []byte) error {
	salt := cryptox.NewSalt()
	derived := p.kdf.DeriveKey(pin, salt)
	defer common.WipeByteArray(derived)

	writes := []struct {
		name  string
		value []byte
	}{
		{secrets.PinSalt, salt},
		{secrets.KDFAlgorithm, []byte(cryptox.Describe(p.kdf))},
		{secrets.PinHash, cryptox.MakeVerifier(derived)},
	}

	prev := make(map[string][]byte, len(writes))
	for _, w := range writes {
		v, err := p.secrets.Get(ctx, w.name)
		switch {
		case err == nil:
			prev[w.name] = v
		case errors.Is(err, common.ErrNotFound):
		default:
			return fmt.Errorf("failed to read %s: %w", w.name, err)
		}
	}

	for i, w := range writes {
		if err := p.secrets.Set(ctx, w.name, w.value); err != nil {
			for j := i - 1; j >= 0; j-- {
				name := writes[j].name
				if rerr := p.restore(ctx, name, prev[name]); rerr != nil {
					p.logger.Error(ctx, "failed to restore pin material", "name", name, "error", rerr)
				}
			}
			return fmt.Errorf("failed to write %s: %w", w.name, err)
		}
	}
	return nil
}

// restore puts back a previous secret value, deleting names that had none.
func (p *PinService) restore(ctx context.Context, name string, value []byte) error {
	if value == nil {
		return p.secrets.Delete(ctx, name)
	}
	return p.secrets.Set(ctx, name, value)
}

// storedKDF returns the KDF the current verifier was made with. Vaults
// without a recorded algorithm use default PBKDF2.
func (p *PinService) storedKDF(ctx context.Context) (cryptox.KDF, error) {
	desc, err := p.secrets.Get(ctx, secrets.KDFAlgorithm)
	if errors.Is(err, common.ErrNotFound) {
		return cryptox.PBKDF2{Iterations: cryptox.DefaultPBKDF2Iterations}, nil
	}
	if err != nil {
		return nil, err
	}
	return cryptox.ParseKDF(string(desc))
}
