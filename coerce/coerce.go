// Package coerce converts a raw configuration string into a Go value
// of a target static type, following a fixed cascade: primitives,
// URIs, a user-supplied FromConfigString hook, enums, sets, lists,
// optionals, and finally a registered single-string constructor. A
// defined type over a primitive kind that implements FromConfigString
// or EnumValues, or has a registered constructor, is not parsed by the
// primitive branches; its hook handles it.
//
// Coerce never returns an error for an unparseable value; it returns
// ok=false and leaves the caller to decide how to report it (the
// binding engine turns this into an "invalid value" diagnostic,
// redacting the raw string for security-sensitive attributes).
package coerce

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// Splitter matches the engine-wide list/set splitting convention:
// comma-separated, trimmed, empty pieces dropped.
func Splitter(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

// FromConfigString is implemented by types that know how to parse
// themselves from a single configuration string. It is tried before
// the built-in enum cascade, so custom encodings win over the default
// one (matching Java's fromString-before-valueOf priority).
type FromConfigString interface {
	FromConfigString(string) error
}

// EnumValues is implemented by defined types that want fuzzy,
// case-insensitive enum matching. Values returns the canonical member
// names exactly as they should be compared against (hyphens in the raw
// input are normalized to underscores before comparison).
type EnumValues interface {
	EnumValues() []string
}

// StringConstructible is the escape hatch for types with a
// constructor the engine cannot discover by reflection alone. Callers
// register the constructor explicitly with WithConstructor.
type StringConstructible[T any] interface {
	*T
}

// Registry holds coercion extension points supplied by a caller:
// constructors for types with no discoverable single-string factory.
// The zero value has no registered constructors.
type Registry struct {
	constructors map[reflect.Type]func(string) (reflect.Value, error)
}

// NewRegistry returns an empty coercion registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[reflect.Type]func(string) (reflect.Value, error))}
}

// WithConstructor registers a single-string constructor for T, used
// when no other branch of the coercion cascade matches; the primitive
// branches are skipped for T even when T's kind is a primitive one. This is the Go
// analogue of reflecting a type's "valueOf"/"of"/constructor in the
// original contract: Go cannot discover "the" constructor of a type by
// name convention, so callers register it once, up front.
func WithConstructor[T any](r *Registry, ctor func(string) (T, error)) {
	t := reflect.TypeOf(*new(T))
	r.constructors[t] = func(raw string) (reflect.Value, error) {
		v, err := ctor(raw)
		return reflect.ValueOf(v), err
	}
}

// Coerce converts raw into a value assignable to target, following the
// cascade described in the package doc. ok is false when no branch of
// the cascade could represent raw as target.
func (r *Registry) Coerce(target reflect.Type, raw string) (reflect.Value, bool) {
	// A defined type over a primitive kind that opts into a hook
	// (FromConfigString, EnumValues or a registered constructor) skips
	// the primitive branches so that the hook handles it instead.
	kind := target.Kind()
	_, hasCtor := r.constructors[target]
	if hasCtor ||
		reflect.PtrTo(target).Implements(reflect.TypeOf((*FromConfigString)(nil)).Elem()) ||
		reflect.PtrTo(target).Implements(reflect.TypeOf((*EnumValues)(nil)).Elem()) {
		kind = reflect.Invalid
	}
	switch kind {
	case reflect.String:
		return reflect.ValueOf(raw).Convert(target), true

	case reflect.Bool:
		switch raw {
		case "true", "TRUE", "True":
			return reflect.ValueOf(true), true
		case "false", "FALSE", "False":
			return reflect.ValueOf(false), true
		}
		if strings.EqualFold(raw, "true") {
			return reflect.ValueOf(true), true
		}
		if strings.EqualFold(raw, "false") {
			return reflect.ValueOf(false), true
		}
		return reflect.Value{}, false

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		v := reflect.New(target).Elem()
		v.SetInt(n)
		return v, true

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		v := reflect.New(target).Elem()
		v.SetUint(n)
		return v, true

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return reflect.Value{}, false
		}
		v := reflect.New(target).Elem()
		v.SetFloat(f)
		return v, true
	}

	if target == reflect.TypeOf(url.URL{}) {
		u, err := url.Parse(raw)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(*u), true
	}
	if target == reflect.TypeOf(&url.URL{}) {
		u, err := url.Parse(raw)
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(u), true
	}

	if v, ok := r.tryFromConfigString(target, raw); ok {
		return v, true
	}

	if v, ok := tryEnum(target, raw); ok {
		return v, true
	}

	switch target.Kind() {
	case reflect.Slice:
		elemType := target.Elem()
		pieces := Splitter(raw)
		out := reflect.MakeSlice(target, 0, len(pieces))
		for _, piece := range pieces {
			ev, ok := r.Coerce(elemType, piece)
			if !ok {
				return reflect.Value{}, false
			}
			out = reflect.Append(out, ev)
		}
		return out, true

	case reflect.Map:
		// Sets are realized as coerce.Set[E]; plain maps are not a
		// supported target type.
		if isSetType(target) {
			return r.coerceSet(target, raw)
		}

	case reflect.Ptr:
		if raw == "" {
			return reflect.Zero(target), true
		}
		elemType := target.Elem()
		ev, ok := r.Coerce(elemType, raw)
		if !ok {
			return reflect.Value{}, false
		}
		ptr := reflect.New(elemType)
		ptr.Elem().Set(ev)
		return ptr, true

	case reflect.Struct:
		if isOptionalType(target) {
			return r.coerceOptional(target, raw)
		}
	}

	if ctor, ok := r.constructors[target]; ok {
		v, err := ctor(raw)
		if err != nil {
			return reflect.Value{}, false
		}
		return v, true
	}

	return reflect.Value{}, false
}

func (r *Registry) tryFromConfigString(target reflect.Type, raw string) (reflect.Value, bool) {
	elemType := target
	if elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if !reflect.PtrTo(elemType).Implements(reflect.TypeOf((*FromConfigString)(nil)).Elem()) {
		return reflect.Value{}, false
	}
	instance := reflect.New(elemType)
	fc := instance.Interface().(FromConfigString)
	if err := fc.FromConfigString(raw); err != nil {
		return reflect.Value{}, false
	}
	if target.Kind() == reflect.Ptr {
		return instance, true
	}
	return instance.Elem(), true
}

func tryEnum(target reflect.Type, raw string) (reflect.Value, bool) {
	ptrType := reflect.PtrTo(target)
	if !ptrType.Implements(reflect.TypeOf((*EnumValues)(nil)).Elem()) {
		return reflect.Value{}, false
	}
	instance := reflect.New(target)
	ev := instance.Interface().(EnumValues)
	normalized := strings.ReplaceAll(raw, "-", "_")

	var match string
	matches := 0
	for _, name := range ev.EnumValues() {
		if strings.EqualFold(name, normalized) {
			match = name
			matches++
		}
	}
	if matches != 1 {
		return reflect.Value{}, false
	}

	switch target.Kind() {
	case reflect.String:
		return reflect.ValueOf(match).Convert(target), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		for i, name := range ev.EnumValues() {
			if name == match {
				v := reflect.New(target).Elem()
				v.SetInt(int64(i))
				return v, true
			}
		}
	}
	return reflect.Value{}, false
}
