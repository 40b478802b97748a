// Package source assembles the flat map[string]string a Factory binds
// configuration structs from, by loading and merging layered property
// sources — YAML files, TOML files, a .env file, process environment
// variables, and secrets resolved from Vault — in ascending precedence
// order.
package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
)

// rawMapProvider adapts an already-decoded map to koanf.Provider, for
// layers (TOML, .env) this module parses itself rather than through a
// koanf parser package.
type rawMapProvider struct{ m map[string]any }

func mapProvider(m map[string]any) rawMapProvider { return rawMapProvider{m: m} }

func (p rawMapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("source: ReadBytes not supported for a pre-decoded map")
}

func (p rawMapProvider) Read() (map[string]any, error) {
	return p.m, nil
}

// Properties is the flat, dot-delimited property map the binding
// engine consumes.
type Properties map[string]string

// Merge copies every key from other into p; keys already present in p
// are overwritten, so callers should Merge lower-precedence layers
// first.
func (p Properties) Merge(other Properties) {
	for k, v := range other {
		p[k] = v
	}
}

// Keys returns p's keys sorted, useful for deterministic logging.
func (p Properties) Keys() []string {
	out := make([]string, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Loader accumulates layers on top of an internal koanf instance,
// dot-delimited the same way the original YAML-plus-env-overlay loader
// in this codebase works, then flattens the result to Properties on
// demand.
type Loader struct {
	k *koanf.Koanf
}

// NewLoader returns an empty loader.
func NewLoader() *Loader {
	return &Loader{k: koanf.New(".")}
}

// LoadYAML merges path's contents over whatever has been loaded so
// far. A missing file is an error; callers that want an optional YAML
// layer should stat it first.
func (l *Loader) LoadYAML(path string) error {
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("source: load yaml %s: %w", path, err)
	}
	return nil
}

// LoadTOML merges path's contents over whatever has been loaded so
// far. TOML has no koanf parser in this module's dependency set, so
// the file is decoded directly with BurntSushi/toml and the decoded
// tree is merged into the koanf tree as is.
func (l *Loader) LoadTOML(path string) error {
	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return fmt.Errorf("source: load toml %s: %w", path, err)
	}
	return l.k.Load(mapProvider(raw), nil)
}

// LoadEnv merges process environment variables with the given prefix
// over whatever has been loaded so far. transform maps an environment
// variable name (prefix already stripped) to a dotted property path;
// the default used by LoadEnvDefault replaces "__" with "." and
// lowercases the result, matching the original ADEPT_ env-overlay
// convention.
func (l *Loader) LoadEnv(prefix string, transform func(string) string) error {
	cb := transform
	if transform != nil {
		// The env provider hands the callback the full variable name,
		// prefix included.
		cb = func(s string) string { return transform(strings.TrimPrefix(s, prefix)) }
	}
	if err := l.k.Load(env.Provider(prefix, ".", cb), nil); err != nil {
		return fmt.Errorf("source: load env prefix %s: %w", prefix, err)
	}
	return nil
}

// LoadEnvDefault merges environment variables with prefix using the
// "__" to "." convention.
func (l *Loader) LoadEnvDefault(prefix string) error {
	return l.LoadEnv(prefix, func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	})
}

// LoadDotEnv merges a .env file as a flat, unprefixed layer: each key
// becomes its own lowercased, dot-normalized property name. A missing
// file is silently ignored, matching the original loader's treatment
// of an optional .env.
func (l *Loader) LoadDotEnv(path string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		return nil
	}
	flat := make(map[string]any, len(values))
	for k, v := range values {
		flat[strings.ToLower(strings.ReplaceAll(k, "__", "."))] = v
	}
	return l.k.Load(mapProvider(flat), nil)
}

// Properties flattens everything loaded so far into a dot-delimited
// map[string]string, stringifying non-string leaf values.
func (l *Loader) Properties() Properties {
	out := Properties{}
	for k, v := range l.k.All() {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprintf("%v", t)
	}
}
