// Package defaults is the ordered, keyed store of default-setter
// callbacks the binding engine composes before applying any property
// values. A distinguished global key collects setters that apply to
// every binding of a type regardless of which annotated key it was
// registered under.
//
// The registry itself is grounded on the same guarded-map registration
// idiom used elsewhere in this codebase for pluggable registries: a
// mutex protects a map, registration appends, and readers take a
// stable, sorted snapshot.
package defaults

import (
	"reflect"
	"sort"
	"sync"
)

// BindingKey identifies which binding a set of defaults applies to: a
// configuration type plus an optional annotation value distinguishing
// multiple bindings of the same type. The zero Annotation is the
// "unannotated" binding for Type.
type BindingKey struct {
	Type       reflect.Type
	Annotation any
}

type globalSentinel struct{}

// Global returns the distinguished key that collects defaults applied
// to every binding of t, regardless of annotation.
func Global(t reflect.Type) BindingKey {
	return BindingKey{Type: t, Annotation: globalSentinel{}}
}

// Holder pairs a default-setter callback with the order it should run
// in relative to other holders under the same key. Holders with equal
// Order run in registration sequence, giving a stable comparator.
type Holder struct {
	Key    BindingKey
	Order  int
	Setter func(any)
	seq    int64
}

// Registry is a multimap from BindingKey to an ordered list of Holder.
// The zero value is ready to use.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[BindingKey][]Holder
	nextSeq int64
}

// NewRegistry returns an empty defaults registry.
func NewRegistry() *Registry {
	return &Registry{byKey: map[BindingKey][]Holder{}}
}

// Register adds a holder under its key. Setter receives the
// freshly-constructed instance (as any, downcast by the caller) and
// may mutate it.
func (r *Registry) Register(key BindingKey, order int, setter func(any)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextSeq++
	r.byKey[key] = append(r.byKey[key], Holder{Key: key, Order: order, Setter: setter, seq: r.nextSeq})
}

// Composed returns, for key, every global-defaults holder (stably
// sorted) followed by every holder registered directly under key
// (stably sorted) — the exact composition order the binding engine
// must apply.
func (r *Registry) Composed(key BindingKey) []Holder {
	r.mu.RLock()
	defer r.mu.RUnlock()

	global := append([]Holder(nil), r.byKey[Global(key.Type)]...)
	keyed := append([]Holder(nil), r.byKey[key]...)
	sortStable(global)
	sortStable(keyed)

	return append(global, keyed...)
}

func sortStable(holders []Holder) {
	sort.SliceStable(holders, func(i, j int) bool {
		if holders[i].Order != holders[j].Order {
			return holders[i].Order < holders[j].Order
		}
		return holders[i].seq < holders[j].seq
	})
}

// Apply runs every composed holder for key against instance, in order.
func (r *Registry) Apply(key BindingKey, instance any) {
	for _, h := range r.Composed(key) {
		h.Setter(instance)
	}
}
