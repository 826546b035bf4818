package models

// SchemaVersion is the settings version written by this build.
const SchemaVersion = 1

// Settings is the vault's singleton settings row. PIN material is mirrored
// here from the secret store; KeyCheck is a FieldCipher blob of a known
// constant used to validate the database key on open.
type Settings struct {
	PinHash   []byte
	PinSalt   []byte
	DBKeySalt []byte
	KeyCheck  []byte
	Version   int
}
