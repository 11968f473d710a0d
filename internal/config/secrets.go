package config

import (
	"context"
	"fmt"
	"strings"
)

// SecretPrefix marks a value as a reference of the form
// `vault:<mount>/<path>#<key>`.
const SecretPrefix = "vault:"

// SecretResolver turns a secret reference into its plain value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// IsSecretRef reports whether s must be resolved before use.
func IsSecretRef(s string) bool { return strings.HasPrefix(s, SecretPrefix) }

// HasSecretRefs reports whether any secret-bearing field holds a reference.
func (c *Config) HasSecretRefs() bool {
	for _, p := range c.secretFields() {
		if IsSecretRef(*p.val) {
			return true
		}
	}
	return false
}

// ResolveSecrets replaces every reference in the secret-bearing fields.
// r may be nil only when no field holds a reference.  A reference that
// resolves to an empty value is an error.
func (c *Config) ResolveSecrets(ctx context.Context, r SecretResolver) error {
	for _, p := range c.secretFields() {
		if !IsSecretRef(*p.val) {
			continue
		}
		if r == nil {
			return fmt.Errorf("%s holds a vault reference but no resolver is configured", p.name)
		}
		plain, err := r.Resolve(ctx, *p.val)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", p.name, err)
		}
		if strings.TrimSpace(plain) == "" {
			return fmt.Errorf("resolve %s: %s is empty", p.name, *p.val)
		}
		*p.val = plain
	}
	return nil
}

type secretField struct {
	name string
	val  *string
}

func (c *Config) secretFields() []secretField {
	return []secretField{
		{"database.password", &c.Database.Password},
		{"assets.access_key_id", &c.Assets.AccessKeyID},
		{"assets.secret_key", &c.Assets.SecretKey},
		{"identity.gateway_secret", &c.Identity.GatewaySecret},
	}
}

// ConnString injects the password into the DSN template.
func (d Database) ConnString() string {
	if strings.Contains(d.DSN, "%s") {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}
