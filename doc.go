// Package configbind binds a flat map[string]string of configuration
// properties into strongly typed Go structs.
//
// It discovers a struct's attribute contract by reflection (operative
// and legacy property names, security sensitivity, deprecation,
// defunct names — see package metadata), coerces raw strings into the
// declared field types (see package coerce), applies layered defaults
// (see package defaults), runs go-playground/validator constraint
// checks, and accumulates diagnostics that distinguish warnings from
// errors (see package problems) rather than failing on the first
// problem found.
//
// A Factory is the long-lived object a caller builds once per
// configuration phase. Register ConfigurationProvider values with it,
// optionally attach a WarningsMonitor and ConfigurationBindingListener
// values, and call Provider.Get to materialize instances on demand.
// Concurrent calls to Get for the same provider are collapsed onto one
// underlying bind and publish exactly one winning instance.
package configbind
