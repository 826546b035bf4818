package models

import (
	"strings"
	"time"
)

// Document is a decrypted document.
type Document struct {
	ID           string
	TemplateID   *string
	FolderID     *string
	Name         string
	Description  string
	IsPinned     bool
	PinnedOrder  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastOpenedAt time.Time

	Fields      []DocumentField
	Attachments []Attachment
}

// DocumentRecord is the stored form of a Document: Name and Description hold
// FieldCipher blobs.
type DocumentRecord struct {
	ID           string
	TemplateID   *string
	FolderID     *string
	Name         []byte
	Description  []byte
	IsPinned     bool
	PinnedOrder  *int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastOpenedAt time.Time
}

// DocumentField is a decrypted field value.
type DocumentField struct {
	ID         string
	DocumentID string
	Name       string
	Value      string
	Preview    string
	IsSecret   bool
	Ord        int
}

// FieldRecord is the stored form of a DocumentField.
type FieldRecord struct {
	ID              string
	DocumentID      string
	Name            string
	ValueCiphertext []byte
	Preview         string
	IsSecret        bool
	Ord             int
}

const (
	PreviewLen = 8
	maskPrefix = "••••"
	maskTail   = 4
	ellipsis   = "…"
)

// Preview returns the list-display excerpt of a field value; it never
// reveals the whole value. Secret values show a mask and their last four
// characters only when they are longer than eight, otherwise just the mask.
// Other values keep at most half their runes, capped at PreviewLen-1, and
// end with an ellipsis.
func Preview(value string, secret bool) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}

	r := []rune(value)
	n := len(r)
	if secret {
		if n <= 2*maskTail {
			return maskPrefix
		}
		return maskPrefix + string(r[n-maskTail:])
	}

	keep := min(n/2, PreviewLen-1)
	return string(r[:keep]) + ellipsis
}
