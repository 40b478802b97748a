// Package module discovers configuration elements — things that want
// to register providers, defaults, or listeners with a Factory before
// binding starts — across a set of sources and applies them
// concurrently, one goroutine per source, the same fan-out-over-
// independent-units shape used elsewhere in this codebase for
// concurrent startup work.
package module

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/yanizio/configbind"
	"github.com/yanizio/configbind/defaults"
	"github.com/yanizio/configbind/problems"
)

// Source is one origin of configuration elements: a plugin, a
// statically linked module, a test fixture. Elements returns every
// element the source contributes; scanning never mutates the factory
// from inside Elements itself, only from Apply.
type Source interface {
	Name() string
	Elements() []Element
}

// Element is the minimal contract every configuration element
// satisfies: something that can attach itself to a Factory. A
// concrete element additionally implements zero or more of
// ListenerElement, DefaultsElement, and ProviderElement; Scan
// recognizes each of the three and dispatches into the matching
// registration call before running Apply, the three element shapes
// spec.md describes. An element matching none of them still has Apply
// called — "all other elements pass through" — for whatever
// registration it wants to do on its own. This is the same interface
// Factory.RegisterElements takes directly for the sequential,
// single-batch registration path; Scanner adds concurrent per-source
// fan-out and shape dispatch on top of it.
type Element = configbind.Element

// ListenerElement is a configuration element that registers a
// ConfigurationBindingListener.
type ListenerElement interface {
	Element
	Listener() configbind.ConfigurationBindingListener
}

// DefaultsElement is a configuration element that is an
// instance-bound defaults-holder: Defaults returns the key and
// setter Scan registers directly with the factory, rather than the
// element registering them itself from inside Apply. An element
// implementing this interface must leave default registration to
// Scan; its own Apply should not also call Factory.RegisterDefaults,
// or the setter would run twice.
type DefaultsElement interface {
	Element
	DefaultsName() string
	Defaults() (key defaults.BindingKey, order int, setter func(any))
}

// ProviderElement is a configuration element that is a
// provider-instance binding: Provider returns the handle and binding
// source Scan registers directly with the factory, rather than the
// element registering it itself from inside Apply. Re-registering the
// same provider is harmless (Factory.RegisterProvider is a no-op past
// the first call for a given provider), so an element may still
// register it from Apply too if that is more convenient, but need
// not.
type ProviderElement interface {
	Element
	ProviderName() string
	Provider() (handle configbind.ProviderHandle, source any)
}

// AwareElement is a configuration element that needs the Factory
// itself before elements are walked, so it can lazily register
// further providers or defaults once it has a handle on the factory.
type AwareElement interface {
	Element
	configbind.ConfigurationAwareModule
}

// Scanner runs every Source's elements against a Factory.
type Scanner struct {
	sources []Source
}

// NewScanner builds a scanner over the given sources.
func NewScanner(sources ...Source) *Scanner {
	return &Scanner{sources: sources}
}

// Scan applies every element from every source to f, one goroutine per
// source so that a slow source's elements don't block a fast one's.
// Elements within a single source are processed in order on that
// source's goroutine; a failing element does not stop the rest of its
// source's elements, or any other source, from being applied. Every
// structural error is collected into the returned batch instead of
// aborting the scan, annotated with the name of the source that raised
// it; a nil (or empty) return means every element applied cleanly.
//
// Each element is checked against the three recognized shapes —
// ListenerElement, DefaultsElement, ProviderElement — and dispatched
// into the matching registration call; an element matching none of
// them passes through to Apply unchanged.
func (s *Scanner) Scan(ctx context.Context, f *configbind.Factory) []problems.Message {
	g, _ := errgroup.WithContext(ctx)
	var mu sync.Mutex
	var batch []problems.Message

	for _, src := range s.sources {
		src := src
		g.Go(func() error {
			elements := src.Elements()
			for _, el := range elements {
				if aw, ok := el.(AwareElement); ok {
					aw.SetConfigurationFactory(f)
				}
			}
			for _, el := range elements {
				if le, ok := el.(ListenerElement); ok {
					f.AddListener(le.Listener())
				}
				if de, ok := el.(DefaultsElement); ok {
					key, order, setter := de.Defaults()
					f.RegisterDefaults(key, order, setter)
				}
				if pe, ok := el.(ProviderElement); ok {
					handle, source := pe.Provider()
					f.RegisterProvider(handle, source)
				}
				if err := el.Apply(f); err != nil {
					mu.Lock()
					batch = append(batch, problems.Message{Source: src.Name(), Text: err.Error(), Cause: err})
					mu.Unlock()
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	return batch
}
