package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func withTerminal(t *testing.T, terminal bool, pw func(int) ([]byte, error)) {
	t.Helper()
	oldTerm, oldRead := isTerminal, readPassword
	t.Cleanup(func() { isTerminal, readPassword = oldTerm, oldRead })
	isTerminal = func(int) bool { return terminal }
	if pw != nil {
		readPassword = pw
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name: ", out.String())

	got, err = GetSimpleText(rdr("lastline"), "Name", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name", &out)
	require.Error(t, err)
}

func TestGetSecret_Piped(t *testing.T) {
	withTerminal(t, false, nil)
	var out bytes.Buffer
	got, err := GetSecret(rdr("1234\n"), "PIN", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), got)
}

func TestGetSecret_Terminal(t *testing.T) {
	withTerminal(t, true, func(int) ([]byte, error) { return []byte("s3cret"), nil })
	var out bytes.Buffer
	got, err := GetSecret(rdr(""), "Password", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cret"), got)
	assert.Equal(t, "Password: \n", out.String())

	withTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("boom") })
	_, err = GetSecret(rdr(""), "Password", &out)
	require.Error(t, err)
}

func TestGetNewSecret(t *testing.T) {
	withTerminal(t, false, nil)
	var out bytes.Buffer

	got, err := GetNewSecret(rdr("1234\n1234\n"), "PIN", &out)
	require.NoError(t, err)
	assert.Equal(t, []byte("1234"), got)

	_, err = GetNewSecret(rdr("1234\n4321\n"), "PIN", &out)
	require.ErrorIs(t, err, errMismatch)
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := Confirm(rdr(tt.in), "Sure?", &out)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseField(t *testing.T) {
	name, value, err := ParseField("Number=AB=12")
	require.NoError(t, err)
	assert.Equal(t, "Number", name)
	assert.Equal(t, "AB=12", value)

	_, _, err = ParseField("=x")
	require.Error(t, err)
	_, _, err = ParseField("novalue")
	require.Error(t, err)
}
