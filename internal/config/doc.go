// Package config loads runtime configuration for the docvault CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional config file: the --config flag, or config.yaml in the data
//     directory when present.
//  3. DOCVAULT_* environment variables, e.g. DOCVAULT_SECRET_BACKEND.
//  4. Command-line flags bound with BindFlags, which override everything.
//
// # File schema
//
//	data_dir: /home/me/.local/share/docvault
//	database_file: vault.db
//	attachments_dir: attachments
//	secret_backend: file        # file, keyring or memory
//	kdf: pbkdf2-sha256          # or argon2id
//	kdf_iterations: 210000
//	log_level: info
//	log_format: text            # or json
//	max_name_attempts: 100
//
// Relative database_file and attachments_dir values are resolved against
// data_dir.
package config
