// Package config resolves the repository base URL and API token for one
// invocation from explicit overrides, environment variables and the
// per-user config file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dva/errs"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	// DefaultFileName config file name inside the user's home directory
	DefaultFileName = ".dataverse"

	PathEnv  = "DATAVERSE_CONFIG_PATH"
	URLEnv   = "DATAVERSE_URL"
	TokenEnv = "DATAVERSE_API_TOKEN"

	keyURL   = "url"
	keyToken = "token"
)

// MissingURLMessage is shown when no base URL could be resolved
const MissingURLMessage = `
ERROR: Missing Dataverse URL configuration.

You need to provide a Dataverse URL for this tool.
This can be done with the "DATAVERSE_URL" environment variable or via a config file.

To create the config file run the following command:

dva setup
`

// Credentials connection settings shared read-only by every transfer of
// an invocation. An empty APIToken is valid for published data.
type Credentials struct {
	BaseURL  string `validate:"required,http_url"`
	APIToken string
}

// Overrides explicit per-invocation values, empty means not set
type Overrides struct {
	URL   string
	Token string
}

type fileContents struct {
	URL   string `json:"url"`
	Token string `json:"token"`
}

var validate = validator.New()

// Path returns the config file location
func Path() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, DefaultFileName)
}

// Resolve builds Credentials. Each key is resolved independently with
// precedence override > environment > config file.
func Resolve(o Overrides) (Credentials, error) {
	v := viper.New()
	v.SetConfigType("json")

	if err := v.BindEnv(keyURL, URLEnv); err != nil {
		return Credentials{}, fmt.Errorf("failed to bind %s: %w", URLEnv, err)
	}
	if err := v.BindEnv(keyToken, TokenEnv); err != nil {
		return Credentials{}, fmt.Errorf("failed to bind %s: %w", TokenEnv, err)
	}

	if path := Path(); path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Credentials{}, &errs.ConfigError{
					Message: fmt.Sprintf("failed to read config file %s: %v", path, err),
				}
			}
		}
	}

	if o.URL != "" {
		v.Set(keyURL, o.URL)
	}
	if o.Token != "" {
		v.Set(keyToken, o.Token)
	}

	creds := Credentials{
		BaseURL:  strings.TrimSuffix(strings.TrimSpace(v.GetString(keyURL)), "/"),
		APIToken: strings.TrimSpace(v.GetString(keyToken)),
	}
	if err := ValidateURL(creds.BaseURL); err != nil {
		return Credentials{}, err
	}

	return creds, nil
}

// ValidateURL reports a ConfigError unless u is an absolute http(s) URL
func ValidateURL(u string) error {
	if u == "" {
		return &errs.ConfigError{Message: MissingURLMessage}
	}
	if err := validate.Struct(Credentials{BaseURL: u}); err != nil {
		return &errs.ConfigError{
			Message: fmt.Sprintf("invalid Dataverse URL %q: %v", u, err),
		}
	}
	return nil
}

// Save writes url and token to path, readable by the owner only
func Save(path, url, token string) error {
	if path == "" {
		return &errs.ConfigError{Message: "cannot determine config file location"}
	}

	payload, err := json.MarshalIndent(fileContents{URL: url, Token: token}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, payload, 0o600); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	// WriteFile keeps the mode of an existing file
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file %s: %w", path, err)
	}
	return nil
}
