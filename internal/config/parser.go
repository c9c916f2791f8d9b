package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out of the Lua environment.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and parses a config file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s is %d bytes, maximum is %d", path, info.Size(), MaxConfigSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string. Settings missing from
// the toolsmith table keep their defaults.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	// Detect platform and inject platform table
	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	// Execute Lua code
	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ParseError{Message: "config evaluation timed out", Detail: ctxErr.Error()}
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global "toolsmith" table over the defaults.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal(luaGlobalToolsmith)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: "missing or invalid 'toolsmith' table",
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}
	table := root.(*lua.LTable)
	config := Default()
	r := &reader{}

	if t := r.table(table, luaFieldRegistry, luaFieldRegistry); t != nil {
		r.str(t, luaFieldBaseURL, "registry.base_url", &config.Registry.BaseURL)
		r.seconds(t, luaFieldTimeout, "registry.timeout", &config.Registry.Timeout)
	}

	if t := r.table(table, luaFieldNetwork, luaFieldNetwork); t != nil {
		r.boolean(t, luaFieldUseMirrors, "network.use_mirrors", &config.Network.UseMirrors)
		r.stringList(t, luaFieldMirrors, "network.mirrors", &config.Network.Mirrors)
		r.seconds(t, luaFieldDownloadTimeout, "network.download_timeout", &config.Network.DownloadTimeout)
		r.str(t, luaFieldUserAgent, "network.user_agent", &config.Network.UserAgent)
	}

	if t := r.table(table, luaFieldProbe, luaFieldProbe); t != nil {
		r.seconds(t, luaFieldTimeout, "probe.timeout", &config.Probe.Timeout)
		r.integer(t, luaFieldConcurrency, "probe.concurrency", &config.Probe.Concurrency)
	}

	if t := r.table(table, luaFieldPaths, luaFieldPaths); t != nil {
		r.str(t, luaFieldResourceDir, "paths.resource_dir", &config.Paths.ResourceDir)
		r.str(t, luaFieldDataDir, "paths.data_dir", &config.Paths.DataDir)
	}

	if t := r.table(table, luaFieldTools, luaFieldTools); t != nil {
		t.ForEach(func(key, value lua.LValue) {
			if r.err != nil {
				return
			}
			kind, err := binary.ParseToolKind(key.String())
			if err != nil {
				r.fail("tools."+key.String(), err.Error())
				return
			}
			toolTable, ok := value.(*lua.LTable)
			if !ok {
				r.fail("tools."+key.String(), fmt.Sprintf("expected table, got %s", value.Type()))
				return
			}
			config.Tools[kind] = r.tool(toolTable, "tools."+kind.String(), config.Tools[kind])
		})
	}

	if r.err != nil {
		return nil, r.err
	}

	// Validate the extracted config
	if err := config.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return config, nil
}

// reader extracts typed fields and keeps the first type error. Absent
// (nil) fields leave the target untouched.
type reader struct {
	err error
}

func (r *reader) fail(field, message string) {
	if r.err == nil {
		r.err = &ParseError{
			Message: "invalid config value",
			Detail:  (&ValidationError{Field: field, Message: message}).Error(),
		}
	}
}

func (r *reader) get(t *lua.LTable, key string, want lua.LValueType, field string) (lua.LValue, bool) {
	v := t.RawGetString(key)
	if v.Type() == lua.LTNil || r.err != nil {
		return nil, false
	}
	if v.Type() != want {
		r.fail(field, fmt.Sprintf("expected %s, got %s", want, v.Type()))
		return nil, false
	}
	return v, true
}

func (r *reader) table(t *lua.LTable, key, field string) *lua.LTable {
	v, ok := r.get(t, key, lua.LTTable, field)
	if !ok {
		return nil
	}
	return v.(*lua.LTable)
}

func (r *reader) str(t *lua.LTable, key, field string, dst *string) {
	if v, ok := r.get(t, key, lua.LTString, field); ok {
		*dst = v.String()
	}
}

func (r *reader) boolean(t *lua.LTable, key, field string, dst *bool) {
	if v, ok := r.get(t, key, lua.LTBool, field); ok {
		*dst = bool(v.(lua.LBool))
	}
}

func (r *reader) integer(t *lua.LTable, key, field string, dst *int) {
	if v, ok := r.get(t, key, lua.LTNumber, field); ok {
		*dst = int(lua.LVAsNumber(v))
	}
}

// seconds reads a number of seconds, fractions allowed
func (r *reader) seconds(t *lua.LTable, key, field string, dst *time.Duration) {
	if v, ok := r.get(t, key, lua.LTNumber, field); ok {
		*dst = time.Duration(float64(lua.LVAsNumber(v)) * float64(time.Second))
	}
}

// stringList reads an array of strings. Nil holes from platform conditionals
// are skipped, which lets configs write `platform.is_linux and "x" or nil`.
func (r *reader) stringList(t *lua.LTable, key, field string, dst *[]string) {
	v, ok := r.get(t, key, lua.LTTable, field)
	if !ok {
		return
	}
	arr := v.(*lua.LTable)

	out := []string{}
	for i := 1; i <= arr.MaxN(); i++ {
		item := arr.RawGetInt(i)
		switch item.Type() {
		case lua.LTNil:
			continue
		case lua.LTString:
			out = append(out, item.String())
		default:
			r.fail(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("expected string, got %s", item.Type()))
			return
		}
	}
	*dst = out
}

func (r *reader) tool(t *lua.LTable, field string, tool ToolConfig) ToolConfig {
	r.str(t, luaFieldCustomPath, field+".custom_path", &tool.CustomPath)
	r.stringList(t, luaFieldExtraDirs, field+".extra_search_dirs", &tool.ExtraSearchDirs)
	if v := r.table(t, luaFieldVerify, field+".verify"); v != nil {
		r.str(v, luaFieldSHA256, field+".verify.sha256", &tool.Verify.SHA256)
		r.str(v, luaFieldMinisignKey, field+".verify.minisign_key", &tool.Verify.MinisignKey)
		r.str(v, luaFieldPGPKeyring, field+".verify.pgp_keyring", &tool.Verify.PGPKeyring)
		r.str(v, luaFieldSignatureSuffix, field+".verify.signature_suffix", &tool.Verify.SignatureSuffix)
	}
	return tool
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		// Extract the most relevant part of the error
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
