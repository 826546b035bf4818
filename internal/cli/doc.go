// Package cli implements the docvault command tree.
//
// Every invocation loads the configuration, opens the secret store and,
// for commands that touch vault contents, asks for the PIN and unlocks a
// session that is locked again when the command returns.
//
// PINs and passwords are read without echo from a terminal. When stdin is
// not a terminal they are read line by line, which lets scripts pipe them.
package cli
