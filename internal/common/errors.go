// Package common defines sentinel errors and small helpers shared by every
// docvault layer. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Key management.
	ErrIncorrectPin     = errors.New("incorrect pin")
	ErrPinNotSet        = errors.New("pin not set")
	ErrPinAlreadySet    = errors.New("pin already set")
	ErrKeyMissing       = errors.New("database key missing")
	ErrStoreUnavailable = errors.New("secret store unavailable")

	// Vault lifecycle.
	ErrLocked            = errors.New("vault is locked")
	ErrDatabaseRecreated = errors.New("database was unreadable and has been recreated")

	// Data integrity (AEAD tag or content hash mismatch).
	ErrIntegrityViolation = errors.New("integrity violation")

	// Attachments.
	ErrSourceUnreadable = errors.New("source unreadable")

	// Backup.
	ErrPasswordRequired   = errors.New("password required")
	ErrUnsupportedVersion = errors.New("unsupported backup version")

	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrTransactionFailed = errors.New("transaction failed")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// UserMessage maps an error to a short, non-technical sentence suitable for
// showing to the vault owner. The full error chain should be logged instead.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrIncorrectPin):
		return "The PIN is incorrect."
	case errors.Is(err, ErrPinNotSet):
		return "No PIN has been set yet. Run init first."
	case errors.Is(err, ErrPinAlreadySet):
		return "A PIN is already set for this vault."
	case errors.Is(err, ErrKeyMissing):
		return "The vault key is missing. The vault must be reset."
	case errors.Is(err, ErrStoreUnavailable):
		return "Secure storage is not available on this device."
	case errors.Is(err, ErrLocked):
		return "The vault is locked."
	case errors.Is(err, ErrDatabaseRecreated):
		return "The vault database was damaged and has been reset. Restore a backup to recover your documents."
	case errors.Is(err, ErrIntegrityViolation):
		return "The data is damaged or has been tampered with."
	case errors.Is(err, ErrSourceUnreadable):
		return "The file could not be read."
	case errors.Is(err, ErrPasswordRequired):
		return "This backup is protected. Enter the correct password."
	case errors.Is(err, ErrUnsupportedVersion):
		return "This backup was created by an unsupported version."
	case errors.Is(err, ErrNotFound):
		return "The item was not found."
	case errors.Is(err, ErrTransactionFailed):
		return "The change could not be saved. Nothing was modified."
	case errors.Is(err, ErrInvalidArgument):
		return "The request is not valid."
	default:
		return "Something went wrong."
	}
}

var known = []error{
	ErrIncorrectPin, ErrPinNotSet, ErrPinAlreadySet, ErrKeyMissing, ErrStoreUnavailable,
	ErrLocked, ErrDatabaseRecreated, ErrIntegrityViolation, ErrSourceUnreadable,
	ErrPasswordRequired, ErrUnsupportedVersion, ErrNotFound, ErrTransactionFailed, ErrInvalidArgument,
}

// IsKnown reports whether err wraps one of the sentinel errors above.
func IsKnown(err error) bool {
	for _, k := range known {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
