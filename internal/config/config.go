package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable names match the CloudFormation template that deploys
// the function, hence the lowercase keys.
const (
	envLaceworkURL    = "lacework_url"
	envSubAccountName = "lacework_sub_account_name"
	envAccountSNS     = "lacework_account_sns"
	envAPICredentials = "lacework_api_credentials"
)

// Load reads the function configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		LaceworkURL:          strings.TrimSpace(os.Getenv(envLaceworkURL)),
		SubAccountName:       strings.TrimSpace(os.Getenv(envSubAccountName)),
		AccountSNSTopic:      strings.TrimSpace(os.Getenv(envAccountSNS)),
		APICredentialsSecret: strings.TrimSpace(os.Getenv(envAPICredentials)),
	}

	if cfg.LaceworkURL == "" {
		return Config{}, fmt.Errorf("%s is required", envLaceworkURL)
	}
	if cfg.AccountSNSTopic == "" {
		return Config{}, fmt.Errorf("%s is required", envAccountSNS)
	}
	if cfg.APICredentialsSecret == "" {
		return Config{}, fmt.Errorf("%s is required", envAPICredentials)
	}

	return cfg, nil
}
