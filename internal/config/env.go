package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Environment variables read by ApplyEnv.
const (
	EnvConfig      = "PROVISION_CONFIG"
	EnvInstallRoot = "PROVISION_INSTALL_ROOT"
	EnvBaseURL     = "PROVISION_BASE_URL"
	EnvManifest    = "PROVISION_MANIFEST"
	EnvPolicy      = "PROVISION_POLICY"
	EnvNoLink      = "PROVISION_NO_LINK"
	EnvForce       = "PROVISION_FORCE"
)

// LookupEnvFunc matches os.LookupEnv.
type LookupEnvFunc func(key string) (string, bool)

// ApplyEnv overrides cfg fields from the environment. Empty values are ignored.
func ApplyEnv(cfg *Config, lookup LookupEnvFunc) error {
	var errs []error

	get := func(key string) (string, bool) {
		value, ok := lookup(key)
		value = strings.TrimSpace(value)
		return value, ok && value != ""
	}

	if v, ok := get(EnvInstallRoot); ok {
		cfg.InstallRoot = v
	}
	if v, ok := get(EnvBaseURL); ok {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := get(EnvManifest); ok {
		cfg.Manifest = v
	}
	if v, ok := get(EnvPolicy); ok {
		cfg.Locate.Policy = Policy(strings.ToLower(v))
	}
	if v, ok := get(EnvNoLink); ok {
		noLink, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvNoLink, err))
		} else if noLink {
			cfg.Link.Enabled = false
		}
	}
	if v, ok := get(EnvForce); ok {
		force, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvForce, err))
		} else {
			cfg.Force = force
		}
	}

	return errors.Join(errs...)
}
