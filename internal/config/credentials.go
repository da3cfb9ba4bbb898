package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Credentials is the account the simulated user signs in with.
type Credentials struct {
	Username string `env:"FACEBOOK_EMAIL1,required,notEmpty"`
	Password string `env:"FACEBOOK_PASSWORD1,required,notEmpty"`
}

// String keeps the password out of log lines.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{Username: %q, Password: <redacted>}", c.Username)
}

// LoadCredentials reads the sign-in account from the environment.
func LoadCredentials() (Credentials, error) {
	var creds Credentials
	if err := env.Parse(&creds); err != nil {
		return Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	return creds, nil
}

// LoadDotEnv exports the KEY=VALUE pairs of a dotenv file into the process
// environment. Variables that are already set win over the file. A missing
// file is not an error.
func LoadDotEnv(path string) (int, error) {
	if path == "" {
		return 0, nil
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	if err := v.ReadInConfig(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("read env file %s: %w", path, err)
	}

	exported := 0
	for _, key := range v.AllKeys() {
		name := strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if err := os.Setenv(name, v.GetString(key)); err != nil {
			return exported, fmt.Errorf("export %s: %w", name, err)
		}
		exported++
	}
	return exported, nil
}
