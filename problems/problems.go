// Package problems accumulates diagnostics raised while extracting
// configuration metadata and binding configuration instances.
//
// A Problems value separates errors from warnings and defers throwing
// until a caller explicitly asks for it, so a whole phase (metadata
// extraction, attribute binding, constraint validation) can finish and
// report every problem it found rather than stopping at the first one.
package problems

import (
	"fmt"
	"strings"
)

// Message is a single diagnostic line, optionally carrying a source
// (provenance marker supplied by a caller, e.g. a binding source) and
// the error that caused it, if any.
type Message struct {
	Source any
	Text   string
	Cause  error
}

func (m Message) String() string {
	if m.Source != nil {
		return fmt.Sprintf("%v: %s", m.Source, m.Text)
	}
	return m.Text
}

// ConfigurationError wraps one or more accumulated error messages.
// It implements Unwrap() []error so errors.Is and errors.As see through
// to the individual causes.
type ConfigurationError struct {
	Messages []Message
}

func (e *ConfigurationError) Error() string {
	lines := make([]string, len(e.Messages))
	for i, m := range e.Messages {
		lines[i] = m.String()
	}
	return strings.Join(lines, "; ")
}

func (e *ConfigurationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Messages))
	for _, m := range e.Messages {
		if m.Cause != nil {
			errs = append(errs, m.Cause)
		}
	}
	return errs
}

// Problems is an append-only error/warning bag. The zero value is ready
// to use.
type Problems struct {
	errors   []Message
	warnings []Message
}

// AddError appends a formatted error message. Formatting happens
// immediately, not when the message is later read.
func (p *Problems) AddError(format string, args ...any) {
	p.errors = append(p.errors, Message{Text: fmt.Sprintf(format, args...)})
}

// AddErrorCause appends a formatted error message carrying an
// underlying cause, e.g. a wrapped reflection failure.
func (p *Problems) AddErrorCause(cause error, format string, args ...any) {
	p.errors = append(p.errors, Message{Text: fmt.Sprintf(format, args...), Cause: cause})
}

// AddWarning appends a formatted warning message.
func (p *Problems) AddWarning(format string, args ...any) {
	p.warnings = append(p.warnings, Message{Text: fmt.Sprintf(format, args...)})
}

// Record merges another Problems' errors and warnings into this one.
func (p *Problems) Record(other *Problems) {
	if other == nil {
		return
	}
	p.errors = append(p.errors, other.errors...)
	p.warnings = append(p.warnings, other.warnings...)
}

// HasErrors reports whether any error has been recorded.
func (p *Problems) HasErrors() bool {
	return len(p.errors) > 0
}

// Errors returns a copy of the accumulated error messages.
func (p *Problems) Errors() []Message {
	return append([]Message(nil), p.errors...)
}

// Warnings returns a copy of the accumulated warning messages.
func (p *Problems) Warnings() []Message {
	return append([]Message(nil), p.warnings...)
}

// ThrowIfHasErrors returns a *ConfigurationError carrying every
// accumulated error, or nil if there are none. Warnings never cause an
// error here; they are surfaced separately through a WarningsMonitor.
func (p *Problems) ThrowIfHasErrors() error {
	if !p.HasErrors() {
		return nil
	}
	return &ConfigurationError{Messages: append([]Message(nil), p.errors...)}
}

// WithSource returns a copy of the message list with Source set on every
// message that does not already carry one. Used by ValidateAll to
// annotate per-provider failures with their binding source.
func WithSource(messages []Message, source any) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		if m.Source == nil {
			m.Source = source
		}
		out[i] = m
	}
	return out
}
