package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoaderFlattensYAML(t *testing.T) {
	path := writeTemp(t, "global.yaml", "http:\n  port: 8080\n  host: example.com\n")
	l := NewLoader()
	if err := l.LoadYAML(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	props := l.Properties()
	if props["http.port"] != "8080" || props["http.host"] != "example.com" {
		t.Fatalf("unexpected properties: %v", props)
	}
}

func TestLoaderFlattensTOML(t *testing.T) {
	path := writeTemp(t, "global.toml", "[http]\nport = 9090\n")
	l := NewLoader()
	if err := l.LoadTOML(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	props := l.Properties()
	if props["http.port"] != "9090" {
		t.Fatalf("unexpected properties: %v", props)
	}
}

func TestLoaderLaterLayerWins(t *testing.T) {
	yamlPath := writeTemp(t, "global.yaml", "http:\n  port: 8080\n")
	l := NewLoader()
	if err := l.LoadYAML(yamlPath); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := os.Setenv("ADEPT_HTTP__PORT", "9999"); err != nil {
		t.Fatalf("setenv: %v", err)
	}
	defer os.Unsetenv("ADEPT_HTTP__PORT")
	if err := l.LoadEnvDefault("ADEPT_"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	props := l.Properties()
	if props["http.port"] != "9999" {
		t.Fatalf("expected env override to win, got %v", props["http.port"])
	}
}

func TestPropertiesMergePrefersOther(t *testing.T) {
	base := Properties{"a": "1", "b": "2"}
	base.Merge(Properties{"b": "3", "c": "4"})
	if base["a"] != "1" || base["b"] != "3" || base["c"] != "4" {
		t.Fatalf("unexpected merged properties: %v", base)
	}
}

type fakeVaultClient struct{ value string }

func (f fakeVaultClient) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	return f.value, nil
}

func TestVaultSecretsResolvesPrefixedValues(t *testing.T) {
	resolver := NewVaultSecrets(fakeVaultClient{value: "s3cr3t"}, time.Minute)
	props := Properties{"db.password": "vault:secret/db#password", "db.host": "localhost"}
	if err := resolver.Resolve(context.Background(), props); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if props["db.password"] != "s3cr3t" {
		t.Fatalf("expected resolved secret, got %v", props["db.password"])
	}
	if props["db.host"] != "localhost" {
		t.Fatalf("non-vault property should be untouched, got %v", props["db.host"])
	}
}

func TestVaultSecretsRejectsMalformedReference(t *testing.T) {
	resolver := NewVaultSecrets(fakeVaultClient{value: "x"}, 0)
	props := Properties{"bad": "vault:no-hash-here"}
	if err := resolver.Resolve(context.Background(), props); err == nil {
		t.Fatal("expected an error for a malformed vault reference")
	}
}
