package config

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestSandboxLuaVM(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		errMsg string
	}{
		{name: "string library", code: `x = string.upper("hello")`},
		{name: "table library", code: `t = {1, 2}; table.insert(t, 3)`},
		{name: "math library", code: `x = math.floor(3.7)`},
		{name: "basic functions", code: `for k, v in pairs({a = tostring(1)}) do x = type(v) end`},

		{name: "os.execute", code: `os.execute("ls")`, errMsg: "attempt to index"},
		{name: "os.getenv", code: `x = os.getenv("PATH")`, errMsg: "attempt to index"},
		{name: "io.open", code: `f = io.open("/etc/passwd")`, errMsg: "attempt to index"},
		{name: "io.popen", code: `f = io.popen("ls")`, errMsg: "attempt to index"},
		{name: "require", code: `m = require("socket")`, errMsg: "attempt to call"},
		{name: "dofile", code: `dofile("/tmp/evil.lua")`, errMsg: "attempt to call"},
		{name: "loadfile", code: `f = loadfile("/tmp/evil.lua")`, errMsg: "attempt to call"},
		{name: "load", code: `f = load("return 1")`, errMsg: "attempt to call"},
		{name: "loadstring", code: `f = loadstring("return 1")`, errMsg: "attempt to call"},
		{name: "debug", code: `debug.getinfo(1)`, errMsg: "attempt to index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if tt.errMsg == "" {
				if err != nil {
					t.Errorf("DoString(%q) unexpected error: %v", tt.code, err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("DoString(%q) error = %v, want substring %q", tt.code, err, tt.errMsg)
			}
		})
	}
}

func TestNewSandboxedVM(t *testing.T) {
	L := newSandboxedVM()
	defer L.Close()

	for _, name := range sandboxedGlobals {
		if v := L.GetGlobal(name); v.Type() != lua.LTNil {
			t.Errorf("global %s = %v, want nil", name, v.Type())
		}
	}
	for _, name := range []string{"string", "table", "math"} {
		if v := L.GetGlobal(name); v.Type() != lua.LTTable {
			t.Errorf("global %s = %v, want table", name, v.Type())
		}
	}
}
