// Package models defines the vault's domain types: templates, folders,
// documents with their fields, attachments and the settings singleton.
//
// Types ending in Record mirror database rows and carry ciphertext; the rest
// carry decrypted values and are what callers work with.
package models
