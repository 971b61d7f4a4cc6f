package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultSecretsPath = "/var/run/secrets/nivel"
	usernameFile       = "mqtt-username"
	passwordFile       = "mqtt-password"
)

// BrokerCredentials authenticate the exporter against the MQTT broker.
type BrokerCredentials struct {
	Username string
	Password string
}

// Complete reports whether both halves of the credential are set.
func (c BrokerCredentials) Complete() bool {
	return c.Username != "" && c.Password != ""
}

// secretsDir returns the directory holding mounted secret files.
func secretsDir() string {
	if dir := os.Getenv("NIVEL_SECRETS_PATH"); dir != "" {
		return dir
	}
	return defaultSecretsPath
}

// loadBrokerCredentials reads MQTT credentials from mounted Kubernetes secret files in dir.
// Missing files yield empty fields; other read failures are returned.
func loadBrokerCredentials(dir string) (BrokerCredentials, error) {
	var creds BrokerCredentials
	var err error

	if creds.Username, err = readSecret(dir, usernameFile); err != nil {
		return BrokerCredentials{}, err
	}
	if creds.Password, err = readSecret(dir, passwordFile); err != nil {
		return BrokerCredentials{}, err
	}
	return creds, nil
}

// envBrokerCredentials reads MQTT credentials from the environment.
func envBrokerCredentials() BrokerCredentials {
	return BrokerCredentials{
		Username: os.Getenv("NIVEL_MQTT_USERNAME"),
		Password: os.Getenv("NIVEL_MQTT_PASSWORD"),
	}
}

func readSecret(dir, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}
