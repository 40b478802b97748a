package configbind

import (
	"reflect"

	"github.com/yanizio/configbind/defaults"
)

// WarningsMonitor receives every warning the binding engine produces:
// deprecated-property notices, legacy-replaced-by-operative notices,
// and anything else that should be visible without aborting a bind.
// An audit implementation (see package audit) persists these; a
// logging implementation just forwards to a structured logger.
type WarningsMonitor interface {
	OnWarning(propertyName, message string)
}

// ConfigurationBindingListener is notified whenever a provider becomes
// known to a Factory — whether the provider was just registered or the
// listener was just added to a factory that already knew about it —
// with the chance to register further providers or defaults through
// the supplied Binder. It is notified about the provider's binding
// descriptor, not a built instance: build() may not have run yet.
//
// The factory guarantees every listener sees every provider exactly
// once, regardless of whether the provider was registered before or
// after the listener was added.
type ConfigurationBindingListener interface {
	ConfigurationBound(binding Binding, binder *Binder)
}

// Binding describes one provider known to a Factory: the
// configuration type it builds, the property prefix it is rooted at,
// and the opaque source it was registered from.
type Binding struct {
	Type   reflect.Type
	Prefix string
	Source any
}

// ConfigurationAwareModule is implemented by a module element that
// needs the Factory itself, rather than just a bound instance — to
// read AllSeenProperties, or to register providers dynamically.
type ConfigurationAwareModule interface {
	SetConfigurationFactory(f *Factory)
}

// Element is the minimal contract a configuration element satisfies:
// something that can attach itself to a Factory. package module's
// richer element shapes (ListenerElement, DefaultsElement,
// ProviderElement, AwareElement) all extend this one.
type Element interface {
	Apply(f *Factory) error
}

// Binder is the narrow view of a Factory exposed to a
// ConfigurationBindingListener: enough to register more providers and
// defaults, not enough to read back the full property map.
type Binder struct {
	factory *Factory
}

// RegisterProvider registers p with the underlying factory, exactly as
// Factory.RegisterProvider would.
func (b *Binder) RegisterProvider(p providerHandle, source any) {
	b.factory.RegisterProvider(p, source)
}

// RegisterDefaults adds a default-setter under key to the underlying
// factory's defaults registry.
func (b *Binder) RegisterDefaults(key defaults.BindingKey, order int, setter func(any)) {
	b.factory.defaultsReg.Register(key, order, setter)
}
