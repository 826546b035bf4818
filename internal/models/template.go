package models

import "time"

// FieldType hints how a field value is entered and displayed.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldSecret    FieldType = "secret"
	FieldDate      FieldType = "date"
	FieldNumber    FieldType = "number"
	FieldMultiline FieldType = "multiline"
)

// IsSecret reports whether values of this type are masked in previews.
func (t FieldType) IsSecret() bool {
	return t == FieldSecret
}

type Template struct {
	ID          string
	Name        string
	IsPinned    bool
	PinnedOrder *int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Fields      []TemplateField
}

type TemplateField struct {
	ID         string
	TemplateID string
	Name       string
	Type       FieldType
	Ord        int
}
