package source

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// VaultSecrets resolves property values of the form
// "vault:<secret-path>#<key>" against a running secrets client,
// replacing them in place with the fetched plaintext. Property values
// that don't carry the vault: prefix are left untouched.
type VaultSecrets struct {
	client VaultClient
	ttl    time.Duration
}

// VaultClient is the minimal surface this package needs from a Vault
// client, satisfied by *vault.Client in package vault.
type VaultClient interface {
	GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error)
}

// NewVaultSecrets builds a resolver that passes ttl to every
// client.GetKV call as the cache lifetime; the resolver keeps no cache
// of its own.
func NewVaultSecrets(client VaultClient, ttl time.Duration) *VaultSecrets {
	return &VaultSecrets{client: client, ttl: ttl}
}

const vaultPrefix = "vault:"

// Resolve rewrites every vault:-prefixed value in props with the
// secret it names, stopping at the first lookup failure.
func (v *VaultSecrets) Resolve(ctx context.Context, props Properties) error {
	for name, raw := range props {
		if !strings.HasPrefix(raw, vaultPrefix) {
			continue
		}
		ref := strings.TrimPrefix(raw, vaultPrefix)
		secretPath, key, ok := strings.Cut(ref, "#")
		if !ok {
			return fmt.Errorf("source: property %q has a malformed vault reference %q, want path#key", name, ref)
		}
		value, err := v.client.GetKV(ctx, secretPath, key, v.ttl)
		if err != nil {
			return fmt.Errorf("source: resolving %q: %w", name, err)
		}
		props[name] = value
	}
	return nil
}
