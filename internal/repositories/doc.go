// Package repositories groups the SQLite data access objects of the vault,
// one subpackage per table family. Every repository is built over a
// dbx.DBTX so the same code runs against *sql.DB or inside dbx.WithTx.
//
// Repositories store and return ciphertext as-is; encryption happens one
// layer up, in package store.
package repositories
