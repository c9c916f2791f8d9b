package platform

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

// evalLua runs code that returns a single value and pops it
func evalLua(t *testing.T, L *lua.LState, code string) lua.LValue {
	t.Helper()
	if err := L.DoString(code); err != nil {
		t.Fatalf("failed to execute %q: %v", code, err)
	}
	got := L.Get(-1)
	L.Pop(1)
	return got
}

func TestInjectPlatformTable(t *testing.T) {
	tests := []struct {
		name   string
		info   *Info
		checks map[string]lua.LValue
	}{
		{
			name: "linux_debian",
			info: &Info{OS: "linux", Arch: "amd64", ArchRaw: "x86_64", Platform: "ubuntu", Family: "debian", Version: "22.04"},
			checks: map[string]lua.LValue{
				`return platform.os`:                  lua.LString("linux"),
				`return platform.arch`:                lua.LString("amd64"),
				`return platform.arch_raw`:            lua.LString("x86_64"),
				`return platform.exe_suffix`:          lua.LString(""),
				`return platform.is_linux`:            lua.LTrue,
				`return platform.is_windows`:          lua.LFalse,
				`return platform.distro.id`:           lua.LString("ubuntu"),
				`return platform.distro.version`:      lua.LString("22.04"),
				`return platform.linux_family`:        lua.LString("debian"),
				`return platform.is_family("debian")`: lua.LTrue,
				`return platform.is_family("alpine")`: lua.LFalse,
				`return platform.is_apple_silicon`:    lua.LFalse,
			},
		},
		{
			name: "macos_arm64",
			info: &Info{OS: "darwin", Arch: "arm64", ArchRaw: "arm64"},
			checks: map[string]lua.LValue{
				`return platform.is_macos`:         lua.LTrue,
				`return platform.is_arm64`:         lua.LTrue,
				`return platform.is_apple_silicon`: lua.LTrue,
				`return platform.distro`:           lua.LNil,
				`return platform.linux_family`:     lua.LNil,
			},
		},
		{
			name: "windows_amd64",
			info: &Info{OS: "windows", Arch: "amd64", ArchRaw: "amd64"},
			checks: map[string]lua.LValue{
				`return platform.is_windows`:        lua.LTrue,
				`return platform.exe_suffix`:        lua.LString(".exe"),
				`return platform.is_family("rhel")`: lua.LFalse,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := lua.NewState()
			defer L.Close()

			if err := InjectPlatformTable(L, tt.info); err != nil {
				t.Fatalf("InjectPlatformTable() error = %v", err)
			}

			for code, want := range tt.checks {
				got := evalLua(t, L, code)
				if got.Type() != want.Type() || got.String() != want.String() {
					t.Errorf("%s = %v (%v), want %v (%v)", code, got, got.Type(), want, want.Type())
				}
			}
		})
	}
}

func TestPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "linux", Arch: "amd64"}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
	}{
		{"modify_os", `platform.os = "windows"`},
		{"add_new_field", `platform.new_field = "value"`},
		{"modify_boolean", `platform.is_linux = false`},
		{"replace_metatable", `setmetatable(platform, {})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.code); err == nil {
				t.Error("expected error when modifying read-only table, got nil")
			}
		})
	}
}

func TestPlatformTable_WhenHelper(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "linux", Arch: "arm64"}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
		want lua.LValue
	}{
		{"true_returns_value", `return platform.when(true, "/opt/pandoc")`, lua.LString("/opt/pandoc")},
		{"false_returns_nil", `return platform.when(false, "/opt/pandoc")`, lua.LNil},
		{"platform_boolean", `return platform.when(platform.is_arm64, "arm")`, lua.LString("arm")},
		{"platform_boolean_false", `return platform.when(platform.is_windows, "C:\\pandoc")`, lua.LNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalLua(t, L, tt.code)
			if got.Type() != tt.want.Type() || got.String() != tt.want.String() {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlatformTable_ConfigUsage(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{OS: "linux", Arch: "amd64", Platform: "nixos", Family: FamilyNixOS}
	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	code := `
		local dirs = {}
		if platform.is_linux then
			table.insert(dirs, "/opt/tools/bin")
		end
		if platform.is_family("nixos") then
			table.insert(dirs, "/run/current-system/sw/bin")
		end
		local extra = platform.when(platform.is_macos, "/opt/homebrew/bin")
		if extra then
			table.insert(dirs, extra)
		end
		return #dirs
	`

	got := evalLua(t, L, code)
	if got.Type() != lua.LTNumber || int(got.(lua.LNumber)) != 2 {
		t.Errorf("expected 2 dirs, got %v", got)
	}
}
