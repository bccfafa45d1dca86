package manifest

import (
	"errors"
	"testing"

	hosterrors "github.com/luaugo/luauhost/errors"
)

func TestDefault(t *testing.T) {
	m := Default()
	if m.ABI.Alloc != "luau_alloc" || m.ABI.Free != "luau_free" {
		t.Errorf("unexpected default allocator names: %+v", m.ABI)
	}
	if m.ABI.Assert != "luau_assert" || m.ABI.AssertModule != "env" {
		t.Errorf("unexpected default assert names: %+v", m.ABI)
	}
	if m.ABI.Memory != "memory" {
		t.Errorf("unexpected default memory name: %q", m.ABI.Memory)
	}
}

func TestParse_FullManifest(t *testing.T) {
	data := []byte(`{
		"name": "luau",
		"version": "0.2.0",
		"abi": {
			"memory": "mem",
			"alloc": "lua_newbuffer",
			"free": "lua_freebuffer",
			"assert": "lua_assert_fail",
			"assert_module": "host"
		}
	}`)

	m, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "luau" || m.Version != "0.2.0" {
		t.Errorf("unexpected identity: %+v", m)
	}
	if m.ABI.Alloc != "lua_newbuffer" || m.ABI.AssertModule != "host" {
		t.Errorf("unexpected ABI: %+v", m.ABI)
	}
}

func TestParse_DefaultsForOmittedNames(t *testing.T) {
	m, err := Parse([]byte(`{"name": "luau", "abi": {"alloc": "my_alloc"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if m.ABI.Alloc != "my_alloc" {
		t.Errorf("alloc = %q, want my_alloc", m.ABI.Alloc)
	}
	if m.ABI.Free != DefaultFree || m.ABI.Assert != DefaultAssert {
		t.Errorf("omitted names not defaulted: %+v", m.ABI)
	}
}

func TestParse_Invalid(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing name", `{"abi": {}}`},
		{"empty name", `{"name": ""}`},
		{"unknown field", `{"name": "luau", "entrypoint": "main"}`},
		{"wrong abi type", `{"name": "luau", "abi": {"alloc": 3}}`},
		{"not json", `nope`},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			if err == nil {
				t.Fatalf("Parse(%q) should fail", tt.data)
			}
			var herr *hosterrors.Error
			if !errors.As(err, &herr) || herr.Phase != hosterrors.PhaseManifest {
				t.Errorf("expected manifest-phase error, got %v", err)
			}
		})
	}
}
