package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/docvault/internal/attachments"
	"github.com/dmitrijs2005/docvault/internal/common"
	"github.com/dmitrijs2005/docvault/internal/cryptox"
	"github.com/dmitrijs2005/docvault/internal/filex"
	"github.com/dmitrijs2005/docvault/internal/secrets"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	AppName   = "docvault"
	EnvPrefix = "DOCVAULT"

	configName = "config"
)

// Config keys as used in files, and with EnvPrefix in the environment.
const (
	KeyDataDir         = "data_dir"
	KeyDatabaseFile    = "database_file"
	KeyAttachmentsDir  = "attachments_dir"
	KeySecretBackend   = "secret_backend"
	KeyKDF             = "kdf"
	KeyKDFIterations   = "kdf_iterations"
	KeyLogLevel        = "log_level"
	KeyLogFormat       = "log_format"
	KeyMaxNameAttempts = "max_name_attempts"
)

// Config holds runtime settings for the docvault CLI.
type Config struct {
	DataDir         string `mapstructure:"data_dir"`
	DatabaseFile    string `mapstructure:"database_file"`
	AttachmentsDir  string `mapstructure:"attachments_dir"`
	SecretBackend   string `mapstructure:"secret_backend"`
	KDF             string `mapstructure:"kdf"`
	KDFIterations   int    `mapstructure:"kdf_iterations"`
	LogLevel        string `mapstructure:"log_level"`
	LogFormat       string `mapstructure:"log_format"`
	MaxNameAttempts int    `mapstructure:"max_name_attempts"`
}

// LoadDefaults populates c with defaults. DataDir falls back to
// "./docvault-data" when no home directory can be found.
func (c *Config) LoadDefaults() {
	dir, err := filex.DataHome(AppName)
	if err != nil {
		dir = "docvault-data"
	}
	c.DataDir = dir
	c.DatabaseFile = "vault.db"
	c.AttachmentsDir = "attachments"
	c.SecretBackend = secrets.BackendFile
	c.KDF = cryptox.AlgPBKDF2
	c.KDFIterations = cryptox.DefaultPBKDF2Iterations
	c.LogLevel = "warn"
	c.LogFormat = "text"
	c.MaxNameAttempts = attachments.DefaultMaxNameAttempts
}

func (c *Config) setDefaults(v *viper.Viper) {
	v.SetDefault(KeyDataDir, c.DataDir)
	v.SetDefault(KeyDatabaseFile, c.DatabaseFile)
	v.SetDefault(KeyAttachmentsDir, c.AttachmentsDir)
	v.SetDefault(KeySecretBackend, c.SecretBackend)
	v.SetDefault(KeyKDF, c.KDF)
	v.SetDefault(KeyKDFIterations, c.KDFIterations)
	v.SetDefault(KeyLogLevel, c.LogLevel)
	v.SetDefault(KeyLogFormat, c.LogFormat)
	v.SetDefault(KeyMaxNameAttempts, c.MaxNameAttempts)
}

// BindFlags registers the persistent configuration flags on fs and binds
// them to v. Flags only override other sources when set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	fs.String("data-dir", "", "vault data directory")
	fs.String("secret-backend", "", "secret store backend: file, keyring or memory")
	fs.String("kdf", "", "pin key derivation: pbkdf2-sha256 or argon2id")
	fs.Int("kdf-iterations", 0, "pbkdf2 iterations")
	fs.String("log-level", "", "log level: debug, info, warn or error")
	fs.String("log-format", "", "log format: text or json")

	for key, flag := range map[string]string{
		KeyDataDir:       "data-dir",
		KeySecretBackend: "secret-backend",
		KeyKDF:           "kdf",
		KeyKDFIterations: "kdf-iterations",
		KeyLogLevel:      "log-level",
		KeyLogFormat:     "log-format",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind %s: %w", flag, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, the config file, the environment and
// any flags already bound to v. configFile may be empty.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(v.GetString(KeyDataDir))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be caught later with a clear
// message.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", common.ErrInvalidArgument)
	}
	switch c.SecretBackend {
	case secrets.BackendFile, secrets.BackendKeyring, secrets.BackendMemory:
	default:
		return fmt.Errorf("%w: secret_backend %q", common.ErrInvalidArgument, c.SecretBackend)
	}
	if _, err := c.NewKDF(); err != nil {
		return err
	}
	if c.MaxNameAttempts <= 0 {
		return fmt.Errorf("%w: max_name_attempts must be positive", common.ErrInvalidArgument)
	}
	return nil
}

// NewKDF returns the configured key derivation.
func (c *Config) NewKDF() (cryptox.KDF, error) {
	return cryptox.NewKDF(c.KDF, c.KDFIterations)
}

func (c *Config) DatabasePath() string {
	return filex.ResolvePath(c.DataDir, c.DatabaseFile)
}

func (c *Config) AttachmentsPath() string {
	return filex.ResolvePath(c.DataDir, c.AttachmentsDir)
}
