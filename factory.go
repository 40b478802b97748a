package configbind

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/configbind/coerce"
	"github.com/yanizio/configbind/defaults"
	"github.com/yanizio/configbind/metadata"
	"github.com/yanizio/configbind/problems"
)

// ConfigPropertyMetadata identifies one property the binding engine
// actually read a value for, for use by introspection endpoints that
// must not echo security-sensitive values back verbatim.
type ConfigPropertyMetadata struct {
	Name              string
	SecuritySensitive bool
}

// Factory is the long-lived entry point for binding configuration
// structs out of a flat property map. Build one per configuration
// phase (typically once per process), register providers with it, and
// let each provider's Get do the work.
//
// A Factory is safe for concurrent use. Instance publication is
// collapsed through a singleflight.Group so that concurrent first
// calls to Get for the same provider produce exactly one build and
// agree on the winning instance — the Go analogue of a publish-once
// cache whose losing builders discard their result instead of racing
// to install it.
type Factory struct {
	properties  map[string]string
	logger      *zap.Logger
	warnings    WarningsMonitor
	coercer     *coerce.Registry
	defaultsReg *defaults.Registry

	group singleflight.Group
	cache sync.Map // id string -> any

	usedMu sync.Mutex
	used   map[string]ConfigPropertyMetadata

	seenMu sync.Mutex
	seen   map[string]struct{}

	registryMu sync.Mutex
	registered map[string]providerHandle
	order      []string
	listeners  []ConfigurationBindingListener
}

// Option configures a Factory at construction time.
type Option func(*Factory)

// WithLogger attaches a structured logger used for the factory's own
// diagnostic narration (not for property-level warnings; use
// WithWarningsMonitor for those).
func WithLogger(logger *zap.Logger) Option {
	return func(f *Factory) { f.logger = logger }
}

// WithWarningsMonitor attaches the sink that receives every warning
// produced while binding (deprecated properties, legacy replacements).
func WithWarningsMonitor(monitor WarningsMonitor) Option {
	return func(f *Factory) { f.warnings = monitor }
}

// WithCoercer overrides the default coercion registry, letting a
// caller register additional FromConfigString-free constructors before
// any binding happens.
func WithCoercer(reg *coerce.Registry) Option {
	return func(f *Factory) { f.coercer = reg }
}

// WithDefaultsRegistry overrides the default (empty) defaults
// registry, letting a caller share one defaults registry across
// multiple factories.
func WithDefaultsRegistry(reg *defaults.Registry) Option {
	return func(f *Factory) { f.defaultsReg = reg }
}

// NewFactory builds a Factory over a flattened property map. The map
// is copied; mutating the caller's map after construction has no
// effect on this factory.
func NewFactory(properties map[string]string, opts ...Option) *Factory {
	f := &Factory{
		properties:  make(map[string]string, len(properties)),
		coercer:     coerce.NewRegistry(),
		defaultsReg: defaults.NewRegistry(),
		used:        map[string]ConfigPropertyMetadata{},
		seen:        map[string]struct{}{},
		registered:  map[string]providerHandle{},
		logger:      zap.NewNop(),
	}
	for k, v := range properties {
		f.properties[k] = v
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Properties returns a copy of the factory's flattened property map.
func (f *Factory) Properties() map[string]string {
	out := make(map[string]string, len(f.properties))
	for k, v := range f.properties {
		out[k] = v
	}
	return out
}

// AddListener registers l and immediately notifies it, once, for every
// provider already registered with this factory — in the order those
// providers were registered. It does not build anything; building
// still happens lazily on the first Get.
func (f *Factory) AddListener(l ConfigurationBindingListener) {
	f.registryMu.Lock()
	f.listeners = append(f.listeners, l)
	bindings := make([]Binding, 0, len(f.registered))
	for _, p := range f.registeredInOrder() {
		bindings = append(bindings, f.bindingFor(p))
	}
	f.registryMu.Unlock()

	binder := &Binder{factory: f}
	for _, b := range bindings {
		l.ConfigurationBound(b, binder)
	}
}

// RegisterProvider attaches p to this factory and remembers it under
// source for later introspection, then notifies every listener
// currently registered with this factory's binding descriptor. It
// does not build anything; building happens lazily on the first Get.
// Each provider is notified exactly once: re-registering the same
// provider is a no-op past the first call.
func (f *Factory) RegisterProvider(p providerHandle, source any) {
	f.registryMu.Lock()
	if _, exists := f.registered[p.idString()]; exists {
		f.registryMu.Unlock()
		return
	}
	p.attach(f)
	p.attachSource(source)
	f.registered[p.idString()] = p
	f.order = append(f.order, p.idString())
	listeners := append([]ConfigurationBindingListener(nil), f.listeners...)
	binding := f.bindingFor(p)
	f.registryMu.Unlock()

	binder := &Binder{factory: f}
	for _, l := range listeners {
		l.ConfigurationBound(binding, binder)
	}
}

// bindingFor must be called with registryMu held.
func (f *Factory) bindingFor(p providerHandle) Binding {
	return Binding{Type: p.configType(), Prefix: p.bindingPrefix(), Source: p.bindingSource()}
}

// registeredInOrder must be called with registryMu held.
func (f *Factory) registeredInOrder() []providerHandle {
	out := make([]providerHandle, 0, len(f.order))
	for _, id := range f.order {
		if p, ok := f.registered[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Registered returns every provider registered with this factory, in
// no particular order.
func (f *Factory) Registered() []providerHandle {
	f.registryMu.Lock()
	defer f.registryMu.Unlock()
	out := make([]providerHandle, 0, len(f.registered))
	for _, p := range f.registered {
		out = append(out, p)
	}
	return out
}

// RegisterDefaults adds a default-setter under key to this factory's
// defaults registry, run before any property value is applied.
func (f *Factory) RegisterDefaults(key defaults.BindingKey, order int, setter func(any)) {
	f.defaultsReg.Register(key, order, setter)
}

// AllSeenProperties returns the full name of every property the
// binding engine looked up, whether or not the property was actually
// present in the input, sorted for stable output.
func (f *Factory) AllSeenProperties() []string {
	f.seenMu.Lock()
	defer f.seenMu.Unlock()
	out := make([]string, 0, len(f.seen))
	for name := range f.seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// UsedProperties returns metadata for every property that was present
// in the input and actually consumed by a bind, sorted by name.
// SecuritySensitive properties are flagged so callers building
// introspection surfaces know to redact the value.
func (f *Factory) UsedProperties() []ConfigPropertyMetadata {
	f.usedMu.Lock()
	defer f.usedMu.Unlock()
	out := make([]ConfigPropertyMetadata, 0, len(f.used))
	for _, m := range f.used {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (f *Factory) recordSeen(name string) {
	f.seenMu.Lock()
	f.seen[name] = struct{}{}
	f.seenMu.Unlock()
}

func (f *Factory) recordUsed(name string, sensitive bool) {
	f.usedMu.Lock()
	f.used[name] = ConfigPropertyMetadata{Name: name, SecuritySensitive: sensitive}
	f.usedMu.Unlock()
}

func (f *Factory) warn(propertyName, message string, args ...any) {
	text := fmt.Sprintf(message, args...)
	if f.warnings != nil {
		f.warnings.OnWarning(propertyName, text)
	}
	f.logger.Warn(text, zap.String("property", propertyName))
}

// resolve builds (once, collapsing concurrent callers) and caches the
// instance for p. Listener notification happens at registration time,
// not here — see RegisterProvider and AddListener.
func (f *Factory) resolve(p providerHandle) (any, error) {
	if cached, ok := f.cache.Load(p.idString()); ok {
		return cached, nil
	}

	result, err, _ := f.group.Do(p.idString(), func() (any, error) {
		if cached, ok := f.cache.Load(p.idString()); ok {
			return cached, nil
		}
		instance, probs, buildErr := p.build(f)
		if buildErr != nil {
			return nil, buildErr
		}
		for _, warning := range probs.Warnings() {
			f.warn("", "%s", warning.String())
		}
		f.cache.Store(p.idString(), instance)
		return instance, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateAll builds every registered provider and reports every
// failure as a single batch rather than stopping at the first: each
// failing provider's messages are annotated with its own binding
// source, so a caller can tell which registration failed.
func (f *Factory) ValidateAll() error {
	var all []problems.Message
	for _, p := range f.Registered() {
		if _, err := f.resolve(p); err != nil {
			var cfgErr *problems.ConfigurationError
			if errors.As(err, &cfgErr) {
				all = append(all, problems.WithSource(cfgErr.Messages, p.bindingSource())...)
				continue
			}
			all = append(all, problems.Message{Source: p.bindingSource(), Text: err.Error(), Cause: err})
		}
	}
	if len(all) == 0 {
		return nil
	}
	return &problems.ConfigurationError{Messages: all}
}

// RegisterElements applies every element to f in order and returns
// every structural problem as a single batch instead of stopping at
// the first, mirroring the original's registerConfigurationClasses:
// a caller decides whether a registration-time failure is fatal
// rather than having RegisterElements decide for it. A nil (or empty)
// return means every element applied cleanly.
func (f *Factory) RegisterElements(elements ...Element) []problems.Message {
	var batch []problems.Message
	for _, el := range elements {
		if err := el.Apply(f); err != nil {
			batch = append(batch, problems.Message{Text: err.Error(), Cause: err})
		}
	}
	return batch
}

// bindInto is the binding engine proper: it derives T's attribute
// contract, applies layered defaults, resolves each attribute's
// operative-vs-legacy property values, coerces and assigns them, flags
// defunct properties, runs constraint validation, and either returns a
// fully populated *T or a non-nil error carrying every problem found —
// never just the first one.
func bindInto[T any](f *Factory, prefix string, key defaults.BindingKey) (any, *problems.Problems, error) {
	probs := &problems.Problems{}

	t := reflect.TypeOf(*new(T))
	meta := metadata.For(t)
	probs.Record(meta.Problems)
	if err := probs.ThrowIfHasErrors(); err != nil {
		return nil, probs, err
	}

	normalized := prefix
	if normalized != "" {
		normalized += "."
	}

	instance := new(T)
	f.defaultsReg.Apply(key, instance)
	instanceVal := reflect.ValueOf(instance).Elem()

	attrNames := make([]string, 0, len(meta.Attributes))
	for name := range meta.Attributes {
		attrNames = append(attrNames, name)
	}
	sort.Strings(attrNames)

	for _, attrName := range attrNames {
		attr := meta.Attributes[attrName]
		f.bindAttribute(attr, normalized, instanceVal, probs)
	}

	for _, name := range meta.Defunct {
		full := normalized + name
		f.recordSeen(full)
		if _, present := f.properties[full]; present {
			probs.AddError("Configuration property '%s' is defunct and cannot be set (class %s)", full, t)
		}
	}

	if err := probs.ThrowIfHasErrors(); err != nil {
		return nil, probs, err
	}

	validateConstraints(instance, meta, normalized, probs)
	if err := probs.ThrowIfHasErrors(); err != nil {
		return nil, probs, err
	}

	return instance, probs, nil
}

func (f *Factory) bindAttribute(attr metadata.AttributeMetadata, prefix string, instanceVal reflect.Value, probs *problems.Problems) {
	f.recordSeen(prefix + attr.Operative.PropertyName)
	for _, legacy := range attr.Legacy {
		f.recordSeen(prefix + legacy.PropertyName)
	}

	point, raw, ok := f.resolveOperative(attr, prefix, probs)
	if !ok {
		return
	}

	fullName := prefix + point.PropertyName
	f.recordUsed(fullName, attr.SecuritySensitive)

	if point.Deprecated != nil {
		f.warn(fullName, "%s", describeDeprecation(prefix, point))
	}

	fieldVal := instanceVal.FieldByIndex(point.Field.Index)
	coerced, ok := f.coercer.Coerce(point.Field.Type, raw)
	if !ok {
		probs.AddError("Could not coerce value %s for field %s (property '%s') to type %s",
			redactIfSensitive(raw, attr.SecuritySensitive), point.Field.Name, fullName, point.Field.Type)
		return
	}

	setField(fieldVal, coerced, point, probs)
}

// resolveOperative implements the operative-vs-legacy precedence rule:
// the canonical property wins if present; otherwise the first present
// legacy property supplies the value. Every present legacy property
// emits a warning. When the canonical supplied the value, present
// legacy properties are not conflicts; otherwise every present legacy
// property after the first is reported as a conflicting duplicate.
func (f *Factory) resolveOperative(attr metadata.AttributeMetadata, prefix string, probs *problems.Problems) (*metadata.InjectionPoint, string, bool) {
	chosen := attr.Operative
	operativeName := prefix + attr.Operative.PropertyName
	value, have := f.properties[operativeName]
	chosenFromOperative := have
	chosenName := operativeName

	for i := range attr.Legacy {
		legacy := attr.Legacy[i]
		fullName := prefix + legacy.PropertyName
		legacyValue, exists := f.properties[fullName]
		if !exists {
			continue
		}

		if attr.Operative != nil {
			f.warn(fullName, "Configuration property '%s' has been replaced. Use '%s' instead.", fullName, operativeName)
		} else {
			f.warn(fullName, "Configuration property '%s' is deprecated.", fullName)
		}

		switch {
		case !have:
			chosen = &legacy
			value = legacyValue
			have = true
			chosenFromOperative = false
			chosenName = fullName
		case chosenFromOperative:
			// The operative's own value already won; a legacy
			// alias supplying a value too is not a conflict.
		default:
			probs.AddError("Configuration property '%s' (value: %s) conflicts with property '%s' (value: %s)",
				fullName, redactIfSensitive(legacyValue, attr.SecuritySensitive),
				chosenName, redactIfSensitive(value, attr.SecuritySensitive))
		}
	}

	if !have {
		return nil, "", false
	}
	return chosen, value, true
}

func redactIfSensitive(value string, sensitive bool) string {
	if sensitive {
		return "[REDACTED]"
	}
	return value
}

func describeDeprecation(prefix string, point *metadata.InjectionPoint) string {
	name := prefix + point.PropertyName
	notice := fmt.Sprintf("Configuration property '%s' is deprecated", name)
	if point.Deprecated.Since != "" {
		notice += " since " + point.Deprecated.Since
	}
	if point.Deprecated.ForRemoval {
		return notice + " and will be removed in a future release"
	}
	return notice
}

func setField(field reflect.Value, value reflect.Value, point *metadata.InjectionPoint, probs *problems.Problems) {
	defer func() {
		if r := recover(); r != nil {
			probs.AddError("Error setting configuration field %s: %v", point.Field.Name, r)
		}
	}()
	field.Set(value)
}
