package module

import (
	"context"
	"reflect"
	"testing"

	"github.com/yanizio/configbind"
	"github.com/yanizio/configbind/defaults"
)

type fakeElement struct {
	applied *bool
}

func (e fakeElement) Apply(f *configbind.Factory) error {
	*e.applied = true
	return nil
}

type fakeSource struct {
	name     string
	elements []Element
}

func (s fakeSource) Name() string        { return s.name }
func (s fakeSource) Elements() []Element { return s.elements }

func TestScanAppliesEveryElementFromEverySource(t *testing.T) {
	var a, b bool
	sources := []Source{
		fakeSource{name: "one", elements: []Element{fakeElement{applied: &a}}},
		fakeSource{name: "two", elements: []Element{fakeElement{applied: &b}}},
	}

	f := configbind.NewFactory(map[string]string{})
	scanner := NewScanner(sources...)
	if msgs := scanner.Scan(context.Background(), f); len(msgs) != 0 {
		t.Fatalf("unexpected problems: %v", msgs)
	}
	if !a || !b {
		t.Fatalf("expected both elements applied, got a=%v b=%v", a, b)
	}
}

type failingElement struct{}

func (failingElement) Apply(f *configbind.Factory) error {
	return errBoom
}

var errBoom = errBoomType{}

type errBoomType struct{}

func (errBoomType) Error() string { return "boom" }

func TestScanPropagatesElementError(t *testing.T) {
	sources := []Source{
		fakeSource{name: "bad", elements: []Element{failingElement{}}},
	}
	f := configbind.NewFactory(map[string]string{})
	scanner := NewScanner(sources...)
	msgs := scanner.Scan(context.Background(), f)
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one problem, got %v", msgs)
	}
	if msgs[0].Source != "bad" {
		t.Fatalf("expected the failing source's name as the message source, got %v", msgs[0].Source)
	}
}

func TestScanBatchesErrorsAcrossSourcesAndElements(t *testing.T) {
	var applied bool
	sources := []Source{
		fakeSource{name: "bad-one", elements: []Element{failingElement{}, fakeElement{applied: &applied}}},
		fakeSource{name: "bad-two", elements: []Element{failingElement{}}},
	}
	f := configbind.NewFactory(map[string]string{})
	scanner := NewScanner(sources...)
	msgs := scanner.Scan(context.Background(), f)
	if len(msgs) != 2 {
		t.Fatalf("expected a problem from each failing source, got %v", msgs)
	}
	if !applied {
		t.Fatal("expected the element following the failing one in its source to still be applied")
	}
}

type awareElement struct {
	factory *configbind.Factory
}

func (e *awareElement) Apply(f *configbind.Factory) error { return nil }

func (e *awareElement) SetConfigurationFactory(f *configbind.Factory) { e.factory = f }

func TestScanSetsFactoryOnAwareElementsBeforeApply(t *testing.T) {
	el := &awareElement{}
	sources := []Source{
		fakeSource{name: "aware", elements: []Element{el}},
	}
	f := configbind.NewFactory(map[string]string{})
	scanner := NewScanner(sources...)
	if msgs := scanner.Scan(context.Background(), f); len(msgs) != 0 {
		t.Fatalf("unexpected problems: %v", msgs)
	}
	if el.factory != f {
		t.Fatal("expected SetConfigurationFactory to have been called with the scanning factory")
	}
}

type listenerElement struct {
	listener configbind.ConfigurationBindingListener
}

func (e listenerElement) Apply(f *configbind.Factory) error { return nil }

func (e listenerElement) Listener() configbind.ConfigurationBindingListener { return e.listener }

type boundListener struct{ bindings []configbind.Binding }

func (l *boundListener) ConfigurationBound(binding configbind.Binding, binder *configbind.Binder) {
	l.bindings = append(l.bindings, binding)
}

func TestScanRegistersListenerElementsWithTheFactory(t *testing.T) {
	l := &boundListener{}
	sources := []Source{
		fakeSource{name: "listeners", elements: []Element{listenerElement{listener: l}}},
	}
	f := configbind.NewFactory(map[string]string{})
	scanner := NewScanner(sources...)
	if msgs := scanner.Scan(context.Background(), f); len(msgs) != 0 {
		t.Fatalf("unexpected problems: %v", msgs)
	}

	p := configbind.NewProvider[fakeConfig]("", nil)
	f.RegisterProvider(p, "after-scan")
	if len(l.bindings) != 1 {
		t.Fatalf("expected the scanned listener to observe the later provider, got %v", l.bindings)
	}
}

type fakeConfig struct {
	Port int `config:"http.port"`
}

type defaultsElement struct{ key defaults.BindingKey }

func (e defaultsElement) Apply(f *configbind.Factory) error { return nil }

func (e defaultsElement) DefaultsName() string { return "fakeConfig-defaults" }

func (e defaultsElement) Defaults() (defaults.BindingKey, int, func(any)) {
	return e.key, 0, func(v any) { v.(*fakeConfig).Port = 4242 }
}

func TestScanRegistersDefaultsElementsWithTheFactory(t *testing.T) {
	key := defaults.Global(reflect.TypeOf(fakeConfig{}))
	sources := []Source{
		fakeSource{name: "defaults", elements: []Element{defaultsElement{key: key}}},
	}
	f := configbind.NewFactory(map[string]string{})
	scanner := NewScanner(sources...)
	if msgs := scanner.Scan(context.Background(), f); len(msgs) != 0 {
		t.Fatalf("unexpected problems: %v", msgs)
	}

	p := configbind.NewProvider[fakeConfig]("", nil)
	f.RegisterProvider(p, "test")
	cfg, err := p.Get()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 4242 {
		t.Fatalf("expected the scanned default to have been registered, got %d", cfg.Port)
	}
}

type providerElement struct {
	provider configbind.ProviderHandle
	source   any
}

func (e providerElement) Apply(f *configbind.Factory) error { return nil }

func (e providerElement) ProviderName() string { return "fakeConfig-provider" }

func (e providerElement) Provider() (configbind.ProviderHandle, any) { return e.provider, e.source }

func TestScanRegistersProviderElementsWithTheFactory(t *testing.T) {
	p := configbind.NewProvider[fakeConfig]("", nil)
	sources := []Source{
		fakeSource{name: "providers", elements: []Element{providerElement{provider: p, source: "scanned"}}},
	}
	f := configbind.NewFactory(map[string]string{"http.port": "9999"})
	scanner := NewScanner(sources...)
	if msgs := scanner.Scan(context.Background(), f); len(msgs) != 0 {
		t.Fatalf("unexpected problems: %v", msgs)
	}

	cfg, err := p.Get()
	if err != nil {
		t.Fatalf("expected the scanned provider to already be registered: %v", err)
	}
	if cfg.Port != 9999 {
		t.Fatalf("got %d", cfg.Port)
	}
	if len(f.Registered()) != 1 {
		t.Fatalf("expected exactly one registered provider, got %d", len(f.Registered()))
	}
}
