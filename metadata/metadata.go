// Package metadata reflects over a configuration struct type once and
// produces the attribute contract the binding engine needs: which
// field is the canonical ("operative") home for a property, which
// fields are deprecated legacy aliases for the same attribute, which
// attributes are security-sensitive, and which property names are
// defunct for the type.
//
// Extraction is expensive enough to memoize: results are cached
// process-wide, keyed by reflect.Type, with an at-most-once guarantee
// per type even under concurrent first use.
package metadata

import (
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/yanizio/configbind/problems"
)

// Defunct is embedded (with any field name, including "_") in a
// configuration struct to declare property names that must never
// appear in the input, tagged `defunct:"old.name,older.name"`.
type Defunct struct{}

var defunctType = reflect.TypeOf(Defunct{})

// Deprecation describes a deprecated injection point, carried on the
// struct field tagged `deprecated:"since=1.2,forRemoval=true"`.
type Deprecation struct {
	Since      string
	ForRemoval bool
}

// InjectionPoint is a (property name, struct field) pair used to push
// a coerced value into a configuration instance.
type InjectionPoint struct {
	PropertyName string
	Field        reflect.StructField
	Deprecated   *Deprecation
}

// AttributeMetadata describes one bindable attribute of a
// configuration type: its canonical ("operative") injection point, any
// deprecated aliases routing to the same attribute, and whether raw
// values for it must be redacted in diagnostics.
type AttributeMetadata struct {
	AttributeName     string
	Operative         *InjectionPoint
	Legacy            []InjectionPoint
	SecuritySensitive bool
}

// ConfigurationMetadata is the full attribute contract for a
// configuration type, plus any structural problems found while
// deriving it.
type ConfigurationMetadata struct {
	Type       reflect.Type
	Attributes map[string]AttributeMetadata
	Problems   *problems.Problems
	Defunct    []string
}

var (
	cacheMu sync.Mutex
	cache   = map[reflect.Type]*cacheEntry{}
)

type cacheEntry struct {
	once sync.Once
	meta *ConfigurationMetadata
}

// For returns the memoized ConfigurationMetadata for t, extracting it
// on first use. Extraction runs at most once per type even if For is
// called concurrently from multiple goroutines for the same t;
// concurrent calls for distinct types proceed independently.
func For(t reflect.Type) *ConfigurationMetadata {
	cacheMu.Lock()
	entry, ok := cache[t]
	if !ok {
		entry = &cacheEntry{}
		cache[t] = entry
	}
	cacheMu.Unlock()

	entry.once.Do(func() {
		entry.meta = extract(t)
	})
	return entry.meta
}

func extract(t reflect.Type) *ConfigurationMetadata {
	meta := &ConfigurationMetadata{
		Type:       t,
		Attributes: map[string]AttributeMetadata{},
		Problems:   &problems.Problems{},
	}

	if t.Kind() != reflect.Struct {
		meta.Problems.AddError("configuration type %s is not a struct", t)
		return meta
	}

	// Pass 1: canonical fields (config tag present) establish
	// attribute identity.
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type == defunctType {
			meta.Defunct = append(meta.Defunct, splitNames(field.Tag.Get("defunct"))...)
			continue
		}
		if !field.IsExported() {
			continue
		}

		canonical := field.Tag.Get("config")
		if canonical == "" || canonical == "-" {
			continue
		}

		attrName := field.Name
		if _, exists := meta.Attributes[attrName]; exists {
			meta.Problems.AddError("configuration type %s has more than one field contributing attribute %q", t, attrName)
			continue
		}

		op := &InjectionPoint{
			PropertyName: canonical,
			Field:        field,
			Deprecated:   parseDeprecation(field),
		}

		attr := AttributeMetadata{
			AttributeName:     attrName,
			Operative:         op,
			SecuritySensitive: field.Tag.Get("sensitive") == "true",
		}

		for _, name := range splitNames(field.Tag.Get("legacyconfig")) {
			attr.Legacy = append(attr.Legacy, InjectionPoint{
				PropertyName: name,
				Field:        field,
				Deprecated:   op.Deprecated,
			})
		}

		meta.Attributes[attrName] = attr
	}

	// Pass 2: legacy-only fields (no config tag, but a legacyconfig tag
	// plus an attr tag naming the attribute they route into). This is
	// the Go realization of a dedicated deprecated setter that shares
	// an attribute identity with a different, canonical setter.
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if field.Type == defunctType || !field.IsExported() {
			continue
		}
		if canonical := field.Tag.Get("config"); canonical != "" && canonical != "-" {
			continue
		}
		legacyNames := splitNames(field.Tag.Get("legacyconfig"))
		if len(legacyNames) == 0 {
			continue
		}
		attrName := field.Tag.Get("attr")
		if attrName == "" {
			meta.Problems.AddError("configuration type %s field %s declares legacyconfig without a config or attr tag", t, field.Name)
			continue
		}
		attr, ok := meta.Attributes[attrName]
		if !ok {
			meta.Problems.AddError("configuration type %s field %s refers to unknown attribute %q", t, field.Name, attrName)
			continue
		}
		dep := parseDeprecation(field)
		for _, name := range legacyNames {
			attr.Legacy = append(attr.Legacy, InjectionPoint{
				PropertyName: name,
				Field:        field,
				Deprecated:   dep,
			})
		}
		meta.Attributes[attrName] = attr
	}

	checkDuplicatePropertyNames(meta)

	return meta
}

// checkDuplicatePropertyNames flags a canonical or legacy property name
// reused by more than one attribute, which would make routing
// ambiguous.
func checkDuplicatePropertyNames(meta *ConfigurationMetadata) {
	owners := map[string][]string{}
	names := make([]string, 0, len(meta.Attributes))
	for name := range meta.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, attrName := range names {
		attr := meta.Attributes[attrName]
		if attr.Operative != nil {
			owners[attr.Operative.PropertyName] = append(owners[attr.Operative.PropertyName], attrName)
		}
		for _, l := range attr.Legacy {
			owners[l.PropertyName] = append(owners[l.PropertyName], attrName)
		}
	}
	propertyNames := make([]string, 0, len(owners))
	for name := range owners {
		propertyNames = append(propertyNames, name)
	}
	sort.Strings(propertyNames)
	for _, propertyName := range propertyNames {
		attrNames := owners[propertyName]
		if len(attrNames) > 1 {
			meta.Problems.AddError("property %q is claimed by more than one attribute: %s", propertyName, strings.Join(attrNames, ", "))
		}
	}
}

func parseDeprecation(field reflect.StructField) *Deprecation {
	raw, ok := field.Tag.Lookup("deprecated")
	if !ok {
		return nil
	}
	dep := &Deprecation{}
	for _, kv := range strings.Split(raw, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		parts := strings.SplitN(kv, "=", 2)
		key := strings.TrimSpace(parts[0])
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}
		switch key {
		case "since":
			dep.Since = value
		case "forRemoval":
			dep.ForRemoval = value == "true"
		}
	}
	return dep
}

func splitNames(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
