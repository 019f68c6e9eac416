// Package config resolves the run configuration from the environment.
//
// Values are layered: built-in defaults < an optional .env file < process
// environment. The .env file never overrides variables that are already set.
package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/viper"
	"github.com/stuttgart-things/snyk-cleanup/internal/snyk"
)

const (
	TokenEnv      = "SNYK_TOKEN"
	APIURLEnv     = "SNYK_API_URL"
	APIVersionEnv = "SNYK_API_VERSION"
	TimeoutEnv    = "SNYK_TIMEOUT"

	// DefaultEnvFile is read from the working directory when present
	DefaultEnvFile = ".env"
)

var ErrTagMissingCredential = goerr.NewTag("missing_credential")

// RunConfig is built once at startup and never mutated
type RunConfig struct {
	Token      string
	DryRun     bool
	APIURL     string
	APIVersion string
	Timeout    time.Duration
}

// Load builds the RunConfig. envFile may be empty to skip .env loading.
func Load(envFile string, dryRun bool) (*RunConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, goerr.Wrap(err, "failed to load env file", goerr.V("path", envFile))
		}
	}

	v := viper.New()
	v.SetDefault("api_url", snyk.DefaultBaseURL)
	v.SetDefault("api_version", snyk.DefaultAPIVersion)
	v.SetDefault("timeout", snyk.DefaultTimeout.String())

	bindings := map[string]string{
		"token":       TokenEnv,
		"api_url":     APIURLEnv,
		"api_version": APIVersionEnv,
		"timeout":     TimeoutEnv,
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, goerr.Wrap(err, "failed to bind environment variable", goerr.V("env", env))
		}
	}

	token := strings.TrimSpace(v.GetString("token"))
	if token == "" {
		return nil, goerr.New("credential is not set",
			goerr.T(ErrTagMissingCredential),
			goerr.V("env", TokenEnv))
	}

	timeout := v.GetDuration("timeout")
	if timeout <= 0 {
		return nil, goerr.New("invalid timeout", goerr.V("env", TimeoutEnv), goerr.V("value", v.GetString("timeout")))
	}

	return &RunConfig{
		Token:      token,
		DryRun:     dryRun,
		APIURL:     strings.TrimRight(v.GetString("api_url"), "/"),
		APIVersion: v.GetString("api_version"),
		Timeout:    timeout,
	}, nil
}
