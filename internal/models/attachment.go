package models

import "time"

// Attachment is a file registered with the vault. SHA256 is the hex digest
// of the bytes at Path. A nil DocumentID marks an orphan awaiting binding or
// garbage collection.
type Attachment struct {
	ID         string
	DocumentID *string
	Name       string
	Mime       string
	Size       int64
	SHA256     string
	Path       string
	URI        string
	CreatedAt  time.Time
}

// IsOrphan reports whether the attachment is bound to no document.
func (a Attachment) IsOrphan() bool {
	return a.DocumentID == nil
}
