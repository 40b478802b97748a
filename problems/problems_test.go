package problems

import (
	"errors"
	"testing"
)

func TestThrowIfHasErrorsNilWhenClean(t *testing.T) {
	var p Problems
	if err := p.ThrowIfHasErrors(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAddErrorFormatsEagerly(t *testing.T) {
	var p Problems
	p.AddError("invalid value %q for %s", "x", "http.port")
	err := p.ThrowIfHasErrors()
	if err == nil {
		t.Fatal("expected an error")
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
	if len(cfgErr.Messages) != 1 || cfgErr.Messages[0].Text != `invalid value "x" for http.port` {
		t.Fatalf("unexpected messages: %#v", cfgErr.Messages)
	}
}

func TestWarningsNeverThrow(t *testing.T) {
	var p Problems
	p.AddWarning("legacy property used")
	if err := p.ThrowIfHasErrors(); err != nil {
		t.Fatalf("warnings must not throw, got %v", err)
	}
	if len(p.Warnings()) != 1 {
		t.Fatalf("expected one warning, got %d", len(p.Warnings()))
	}
}

func TestRecordMerges(t *testing.T) {
	var a, b Problems
	a.AddError("a error")
	a.AddWarning("a warning")
	b.AddError("b error")
	a.Record(&b)
	if len(a.Errors()) != 2 || len(a.Warnings()) != 1 {
		t.Fatalf("merge failed: errors=%d warnings=%d", len(a.Errors()), len(a.Warnings()))
	}
}

func TestConfigurationErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	var p Problems
	p.AddErrorCause(cause, "wrapped")
	err := p.ThrowIfHasErrors()
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find cause, got %v", err)
	}
}

func TestWithSourceOnlyFillsMissing(t *testing.T) {
	msgs := []Message{{Text: "a"}, {Text: "b", Source: "explicit"}}
	out := WithSource(msgs, "fallback")
	if out[0].Source != "fallback" {
		t.Fatalf("expected fallback source, got %v", out[0].Source)
	}
	if out[1].Source != "explicit" {
		t.Fatalf("expected explicit source preserved, got %v", out[1].Source)
	}
}
