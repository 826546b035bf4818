package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	data := t.TempDir()
	t.Setenv("XDG_DATA_HOME", data)
	for _, k := range []string{"DATA_DIR", "SECRET_BACKEND", "KDF", "KDF_ITERATIONS", "LOG_LEVEL", "LOG_FORMAT", "DATABASE_FILE"} {
		t.Setenv(EnvPrefix+"_"+k, "")
		require.NoError(t, os.Unsetenv(EnvPrefix+"_"+k))
	}
	return filepath.Join(data, AppName)
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := isolate(t)

	got, err := Load(viper.New(), "")
	require.NoError(t, err)

	want := &Config{
		DataDir:         dataDir,
		DatabaseFile:    "vault.db",
		AttachmentsDir:  "attachments",
		SecretBackend:   "file",
		KDF:             cryptox.AlgPBKDF2,
		KDFIterations:   cryptox.DefaultPBKDF2Iterations,
		LogLevel:        "warn",
		LogFormat:       "text",
		MaxNameAttempts: 100,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, filepath.Join(dataDir, "vault.db"), got.DatabasePath())
	assert.Equal(t, filepath.Join(dataDir, "attachments"), got.AttachmentsPath())
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)

	file := filepath.Join(t.TempDir(), "docvault.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
data_dir: /from/file
secret_backend: keyring
log_level: info
attachments_dir: /srv/files
max_name_attempts: 7
`), 0o600))

	t.Setenv("DOCVAULT_LOG_LEVEL", "error")
	t.Setenv("DOCVAULT_SECRET_BACKEND", "memory")

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--log-level", "debug", "--kdf", "argon2id"}))

	got, err := Load(v, file)
	require.NoError(t, err)

	assert.Equal(t, "/from/file", got.DataDir)
	assert.Equal(t, "memory", got.SecretBackend)
	assert.Equal(t, "debug", got.LogLevel)
	assert.Equal(t, "argon2id", got.KDF)
	assert.Equal(t, 7, got.MaxNameAttempts)
	assert.Equal(t, "/from/file/vault.db", got.DatabasePath())
	assert.Equal(t, "/srv/files", got.AttachmentsPath())
}

func TestLoad_ConfigFileInDataDir(t *testing.T) {
	dataDir := isolate(t)
	require.NoError(t, os.MkdirAll(dataDir, 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "config.yaml"), []byte("log_format: json\n"), 0o600))

	got, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "json", got.LogFormat)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"backend", map[string]string{"DOCVAULT_SECRET_BACKEND": "cloud"}},
		{"kdf", map[string]string{"DOCVAULT_KDF": "md5"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(viper.New(), "")
			require.ErrorIs(t, err, common.ErrInvalidArgument)
		})
	}

	isolate(t)
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
