package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		secret bool
		want   string
	}{
		{"empty", "", false, ""},
		{"blank secret", "   ", true, ""},
		{"single rune", "A", false, "…"},
		{"short text halved", "Riga", false, "Ri…"},
		{"exact length halved", "12345678", false, "1234…"},
		{"long text cut", "AB1234567890", false, "AB1234…"},
		{"very long text capped", "AB1234567890XYZW", false, "AB12345…"},
		{"unicode runes", "Пётр Иванович", false, "Пётр И…"},
		{"short secret fully masked", "1234", true, "••••"},
		{"secret five runes masked", "abcde", true, "••••"},
		{"secret eight runes masked", "abcdefgh", true, "••••"},
		{"secret shows tail", "4111111111111111", true, "••••1111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Preview(tt.value, tt.secret)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, utf8.RuneCountInString(got), PreviewLen)
			if tt.value != "" && strings.TrimSpace(tt.value) != "" {
				assert.NotEqual(t, tt.value, got)
			}
		})
	}
}

func TestFieldType_IsSecret(t *testing.T) {
	assert.True(t, FieldSecret.IsSecret())
	assert.False(t, FieldText.IsSecret())
	assert.False(t, FieldType("").IsSecret())
}

func TestAttachment_IsOrphan(t *testing.T) {
	doc := "d1"
	assert.True(t, Attachment{}.IsOrphan())
	assert.False(t, Attachment{DocumentID: &doc}.IsOrphan())
}
