package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/zalando/go-keyring"

	"github.com/Tiliavir/trivial-pay-tracker/internal/logger"
)

// KeyringService is the OS keyring service all secrets are stored under.
const KeyringService = "tpt"

// Secret names accepted by SetSecret, GetSecret and DeleteSecret.
const (
	SecretSheetsAPIKey = "sheets-api-key"
	SecretMySQLDSN     = "mysql-dsn"
)

var (
	// ErrSecretNotFound is returned when the keyring holds no value for a secret.
	ErrSecretNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be reached.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
	// ErrUnknownSecret is returned for a name outside SecretNames.
	ErrUnknownSecret = errors.New("unknown secret")
)

var secretEnv = map[string]string{
	SecretSheetsAPIKey: "TPT_SHEETS_API_KEY",
	SecretMySQLDSN:     "TPT_MYSQL_DSN",
}

// SecretNames lists the secrets tpt knows about.
func SecretNames() []string {
	return []string{SecretSheetsAPIKey, SecretMySQLDSN}
}

// EnvVar returns the environment variable that overrides the named secret.
func EnvVar(name string) (string, error) {
	env, ok := secretEnv[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSecret, name)
	}
	return env, nil
}

// GetSecret reads a secret from the OS keyring.
func GetSecret(name string) (string, error) {
	if _, err := EnvVar(name); err != nil {
		return "", err
	}
	v, err := keyring.Get(KeyringService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return v, nil
}

// SetSecret stores a secret in the OS keyring.
func SetSecret(name, value string) error {
	if _, err := EnvVar(name); err != nil {
		return err
	}
	if value == "" {
		return errors.New("secret value cannot be empty")
	}
	if err := keyring.Set(KeyringService, name, value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", name, err)
	}
	return nil
}

// DeleteSecret removes a secret from the OS keyring.
func DeleteSecret(name string) error {
	if _, err := EnvVar(name); err != nil {
		return err
	}
	if err := keyring.Delete(KeyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrSecretNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", name, err)
	}
	return nil
}

// ResolveSecrets fills the secret needed by the configured remote. A value
// in the file wins, then the environment, then the keyring. A missing secret
// is not an error here; connecting will fail later and the ledger falls back
// to local storage.
func (c *Config) ResolveSecrets() {
	switch c.Remote.Kind {
	case RemoteSheets:
		if c.Sheets.CredentialsFile == "" {
			c.Sheets.APIKey = resolve(SecretSheetsAPIKey, c.Sheets.APIKey)
		}
	case RemoteMySQL:
		c.MySQL.DSN = resolve(SecretMySQLDSN, c.MySQL.DSN)
	}
}

func resolve(name, current string) string {
	if current != "" {
		return current
	}
	if v := os.Getenv(secretEnv[name]); v != "" {
		return v
	}
	v, err := GetSecret(name)
	switch {
	case errors.Is(err, ErrSecretNotFound):
		logger.Debug("secret not set", "name", name)
	case err != nil:
		logger.Warn("could not read secret", "name", name, "err", err)
	}
	return v
}
