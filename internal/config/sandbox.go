package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxedGlobals are removed before any config code runs. Without them
// a config cannot run commands, touch the filesystem, or load more code.
var sandboxedGlobals = []string{
	"os",
	"io",
	"require",
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"debug",
}

// sandboxLuaVM removes unsafe globals from L. The string, table, and math
// libraries and the basic functions (type, tostring, pairs, ...) stay.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range sandboxedGlobals {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a new Lua VM with sandboxing applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState()
	sandboxLuaVM(L)
	return L
}
