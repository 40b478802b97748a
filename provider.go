package configbind

import (
	"fmt"
	"reflect"

	"github.com/google/uuid"
	"github.com/yanizio/configbind/defaults"
	"github.com/yanizio/configbind/problems"
)

// ConfigurationProvider produces a single bound instance of T, rooted
// at Prefix in the property namespace and keyed for defaults purposes
// by Key. A provider is worthless until it is registered with a
// Factory; Get before registration returns an error.
//
// Identity matters here the way object identity mattered for the
// original setup's provider maps and sets: Go structs don't carry that
// for free, so each provider is stamped with a uuid.UUID on
// construction and compares by that id, not by value.
type ConfigurationProvider[T any] struct {
	id      uuid.UUID
	Prefix  string
	Key     defaults.BindingKey
	factory *Factory
	source  any
}

// NewProvider builds an unregistered provider for T rooted at prefix.
// annotation distinguishes this binding from others of the same type
// for defaults-registry purposes; pass nil for the unannotated
// binding.
func NewProvider[T any](prefix string, annotation any) *ConfigurationProvider[T] {
	var zero T
	return &ConfigurationProvider[T]{
		id:     uuid.New(),
		Prefix: prefix,
		Key:    defaults.BindingKey{Type: reflect.TypeOf(zero), Annotation: annotation},
	}
}

// ID returns the provider's stable identity.
func (p *ConfigurationProvider[T]) ID() uuid.UUID { return p.id }

// WithSource attaches an opaque marker (a module, a call site, a test
// name) identifying where this provider was registered from, surfaced
// in diagnostics and by Factory.Registered.
func (p *ConfigurationProvider[T]) WithSource(source any) *ConfigurationProvider[T] {
	p.source = source
	return p
}

// Get returns the bound instance, building and publishing it on first
// call and returning the cached instance thereafter. Concurrent first
// calls collapse onto a single build.
func (p *ConfigurationProvider[T]) Get() (*T, error) {
	if p.factory == nil {
		return nil, fmt.Errorf("configbind: provider for %s is not registered with a factory", p.Key.Type)
	}
	v, err := p.factory.resolve(p)
	if err != nil {
		return nil, err
	}
	return v.(*T), nil
}

// DefaultInstance builds an instance of T with only its registered
// defaults applied — no property is read, recorded as seen or used,
// and no constraint validation runs. It answers "what would this
// configuration be with nothing set," the same question
// getDefaultConfig answered in the original, and exists for
// inspection tooling rather than the live binding path: p must still
// be registered with a Factory, but the factory it was registered
// with is never consulted for property values here.
func DefaultInstance[T any](p *ConfigurationProvider[T]) *T {
	instance := new(T)
	if p.factory != nil {
		p.factory.defaultsReg.Apply(p.Key, instance)
	}
	return instance
}

func (p *ConfigurationProvider[T]) idString() string { return p.id.String() }

func (p *ConfigurationProvider[T]) bindingSource() any { return p.source }

func (p *ConfigurationProvider[T]) bindingKey() defaults.BindingKey { return p.Key }

func (p *ConfigurationProvider[T]) bindingPrefix() string { return p.Prefix }

func (p *ConfigurationProvider[T]) configType() reflect.Type { return p.Key.Type }

func (p *ConfigurationProvider[T]) build(f *Factory) (any, *problems.Problems, error) {
	return bindInto[T](f, p.Prefix, p.Key)
}

func (p *ConfigurationProvider[T]) attach(f *Factory) { p.factory = f }

func (p *ConfigurationProvider[T]) attachSource(source any) {
	if p.source == nil {
		p.source = source
	}
}

// providerHandle is the non-generic face every *ConfigurationProvider[T]
// satisfies, letting Factory hold heterogeneous providers in one map
// and notify listeners without knowing T.
type providerHandle interface {
	idString() string
	bindingSource() any
	bindingKey() defaults.BindingKey
	bindingPrefix() string
	configType() reflect.Type
	build(f *Factory) (any, *problems.Problems, error)
	attach(f *Factory)
	attachSource(source any)
}

// ProviderHandle is the exported name for providerHandle: a
// *ConfigurationProvider[T] that has erased its T, the shape
// RegisterProvider and module.ProviderElement pass around so a caller
// that does not know T — a module scanning its own provider-instance
// bindings, say — can still hand one back to a Factory.
type ProviderHandle = providerHandle
