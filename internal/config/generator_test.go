package config

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

func TestGenerator_RoundTrip(t *testing.T) {
	full := Default()
	full.Registry.Timeout = 1500 * time.Millisecond
	full.Network.UseMirrors = false
	full.Network.Mirrors = []string{"https://mirror.example.com/", ""}
	full.Paths = PathsConfig{ResourceDir: `C:\Program Files\App\resources`, DataDir: "/data"}
	full.Tools[binary.Converter] = ToolConfig{
		CustomPath:      "/opt/pandoc \"nightly\"/pandoc",
		ExtraSearchDirs: []string{"/a", "/b"},
		Verify:          VerifyConfig{SignatureSuffix: ".sig"},
	}
	full.Tools[binary.Typesetter] = ToolConfig{
		Verify: VerifyConfig{
			SHA256:          strings.Repeat("0f", 32),
			MinisignKey:     "RWS\tkey",
			PGPKeyring:      "/keys.gpg",
			SignatureSuffix: ".asc",
		},
	}

	tests := []struct {
		name   string
		config *Config
	}{
		{name: "defaults", config: Default()},
		{name: "full", config: full},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := NewGenerator().Generate(tt.config)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			parsed, err := NewParser(nil).ParseString(context.Background(), code)
			if err != nil {
				t.Fatalf("generated code does not parse: %v\n%s", err, code)
			}
			if !reflect.DeepEqual(parsed, tt.config) {
				t.Errorf("round trip mismatch\n got: %+v\nwant: %+v\ncode:\n%s", parsed, tt.config, code)
			}
		})
	}
}

func TestGenerator_Generate_Layout(t *testing.T) {
	code, err := NewGenerator().Generate(Default())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, want := range []string{
		"toolsmith = {\n",
		"  registry = {\n",
		"    timeout = 30,\n",
		"    download_timeout = 600,\n",
		`    mirrors = { "https://hub.gitmirror.com/", "https://gh.ddlc.top/", "" },`,
		"    converter = {\n",
		"      verify = {\n",
		`        signature_suffix = ".sig",`,
	} {
		if !strings.Contains(code, want) {
			t.Errorf("generated code missing %q:\n%s", want, code)
		}
	}
	if strings.Contains(code, "paths = {") {
		t.Error("empty paths section should be omitted")
	}
}

func TestGenerator_Generate_Nil(t *testing.T) {
	if _, err := NewGenerator().Generate(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestGenerator_QuoteLuaString(t *testing.T) {
	gen := NewGenerator()
	tests := []struct {
		input string
		want  string
	}{
		{"hello", `"hello"`},
		{`say "hi"`, `"say \"hi\""`},
		{`C:\tools`, `"C:\\tools"`},
		{"a\nb\tc\r", `"a\nb\tc\r"`},
	}
	for _, tt := range tests {
		if got := gen.quoteLuaString(tt.input); got != tt.want {
			t.Errorf("quoteLuaString(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
