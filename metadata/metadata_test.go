package metadata

import (
	"reflect"
	"testing"
)

type httpConfig struct {
	_        Defunct `defunct:"http.old-port"`
	Port     int     `config:"http.port"`
	LegacyOp int     `config:"-" legacyconfig:"server.http-port" attr:"Port"`
}

func TestForExtractsOperativeAndLegacy(t *testing.T) {
	meta := For(reflect.TypeOf(httpConfig{}))
	if meta.Problems.HasErrors() {
		t.Fatalf("unexpected errors: %v", meta.Problems.Errors())
	}
	attr, ok := meta.Attributes["Port"]
	if !ok {
		t.Fatal("expected attribute Port")
	}
	if attr.Operative == nil || attr.Operative.PropertyName != "http.port" {
		t.Fatalf("unexpected operative: %#v", attr.Operative)
	}
	if len(attr.Legacy) != 1 || attr.Legacy[0].PropertyName != "server.http-port" {
		t.Fatalf("unexpected legacy: %#v", attr.Legacy)
	}
	if len(meta.Defunct) != 1 || meta.Defunct[0] != "http.old-port" {
		t.Fatalf("unexpected defunct: %#v", meta.Defunct)
	}
}

func TestForMemoizes(t *testing.T) {
	a := For(reflect.TypeOf(httpConfig{}))
	b := For(reflect.TypeOf(httpConfig{}))
	if a != b {
		t.Fatal("expected identical cached pointer")
	}
}

type sensitiveConfig struct {
	Password string `config:"password" sensitive:"true"`
}

func TestSecuritySensitiveFlag(t *testing.T) {
	meta := For(reflect.TypeOf(sensitiveConfig{}))
	attr := meta.Attributes["Password"]
	if !attr.SecuritySensitive {
		t.Fatal("expected security-sensitive attribute")
	}
}

type deprecatedConfig struct {
	Port int `config:"http.port" deprecated:"since=2.0,forRemoval=true"`
}

func TestDeprecationParsing(t *testing.T) {
	meta := For(reflect.TypeOf(deprecatedConfig{}))
	dep := meta.Attributes["Port"].Operative.Deprecated
	if dep == nil || dep.Since != "2.0" || !dep.ForRemoval {
		t.Fatalf("unexpected deprecation: %#v", dep)
	}
}

type duplicateConfig struct {
	A int `config:"shared.name"`
	B int `config:"shared.name"`
}

func TestDuplicatePropertyNameIsAnError(t *testing.T) {
	meta := For(reflect.TypeOf(duplicateConfig{}))
	if !meta.Problems.HasErrors() {
		t.Fatal("expected a structural error for duplicate property name")
	}
}

type orphanLegacyConfig struct {
	Old int `legacyconfig:"old.name"`
}

func TestLegacyWithoutAttrIsAnError(t *testing.T) {
	meta := For(reflect.TypeOf(orphanLegacyConfig{}))
	if !meta.Problems.HasErrors() {
		t.Fatal("expected an error for legacy field with no attr target")
	}
}
