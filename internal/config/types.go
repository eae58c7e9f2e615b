package config

// Config carries the environment-provided settings for the account function.
type Config struct {
	// LaceworkURL is the tenant URL, e.g. "acme.lacework.net". The tenant
	// name is its host prefix.
	LaceworkURL string

	// SubAccountName optionally overrides the tenant name when deriving the
	// member stack set name.
	SubAccountName string

	// AccountSNSTopic is the topic ARN used to requeue deferred work items.
	AccountSNSTopic string

	// APICredentialsSecret is the Secrets Manager secret id holding the
	// Lacework API access token.
	APICredentialsSecret string
}

// TenantName returns the substring of LaceworkURL before the first dot.
func (c Config) TenantName() string {
	for i := 0; i < len(c.LaceworkURL); i++ {
		if c.LaceworkURL[i] == '.' {
			return c.LaceworkURL[:i]
		}
	}
	return c.LaceworkURL
}

// StackSetTenant returns the name used in the member stack set: the
// sub-account override when set, the tenant name otherwise.
func (c Config) StackSetTenant() string {
	if c.SubAccountName != "" {
		return c.SubAccountName
	}
	return c.TenantName()
}
