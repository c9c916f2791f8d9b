package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

// Generator generates Lua configuration code from Go structs.
type Generator struct {
	indent string // Indentation string (default: two spaces)
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
	}
}

// Generate renders config as a toolsmith.lua file that parses back to
// the same settings.
func (g *Generator) Generate(config *Config) (string, error) {
	if config == nil {
		return "", fmt.Errorf("config is nil")
	}

	var buf bytes.Buffer

	buf.WriteString("-- toolsmith configuration\n")
	buf.WriteString("-- Timeouts are in seconds. The platform table is available for conditionals.\n\n")
	buf.WriteString(luaGlobalToolsmith + " = {\n")

	g.open(&buf, 1, luaFieldRegistry)
	g.field(&buf, 2, luaFieldBaseURL, g.quoteLuaString(config.Registry.BaseURL))
	g.field(&buf, 2, luaFieldTimeout, seconds(config.Registry.Timeout))
	g.close(&buf, 1, true)

	g.open(&buf, 1, luaFieldNetwork)
	g.field(&buf, 2, luaFieldUseMirrors, strconv.FormatBool(config.Network.UseMirrors))
	g.field(&buf, 2, luaFieldMirrors, g.stringList(config.Network.Mirrors))
	g.field(&buf, 2, luaFieldDownloadTimeout, seconds(config.Network.DownloadTimeout))
	g.field(&buf, 2, luaFieldUserAgent, g.quoteLuaString(config.Network.UserAgent))
	g.close(&buf, 1, true)

	g.open(&buf, 1, luaFieldProbe)
	g.field(&buf, 2, luaFieldTimeout, seconds(config.Probe.Timeout))
	g.field(&buf, 2, luaFieldConcurrency, strconv.Itoa(config.Probe.Concurrency))
	g.close(&buf, 1, true)

	if config.Paths.ResourceDir != "" || config.Paths.DataDir != "" {
		g.open(&buf, 1, luaFieldPaths)
		if config.Paths.ResourceDir != "" {
			g.field(&buf, 2, luaFieldResourceDir, g.quoteLuaString(config.Paths.ResourceDir))
		}
		if config.Paths.DataDir != "" {
			g.field(&buf, 2, luaFieldDataDir, g.quoteLuaString(config.Paths.DataDir))
		}
		g.close(&buf, 1, true)
	}

	g.open(&buf, 1, luaFieldTools)
	for _, kind := range binary.AllKinds {
		tool, ok := config.Tools[kind]
		if !ok {
			continue
		}
		g.writeTool(&buf, kind, tool)
	}
	g.close(&buf, 1, false)

	buf.WriteString("}\n")
	return buf.String(), nil
}

// writeTool writes one entry of the tools section
func (g *Generator) writeTool(buf *bytes.Buffer, kind binary.ToolKind, tool ToolConfig) {
	g.open(buf, 2, kind.String())
	if tool.CustomPath != "" {
		g.field(buf, 3, luaFieldCustomPath, g.quoteLuaString(tool.CustomPath))
	}
	if len(tool.ExtraSearchDirs) > 0 {
		g.field(buf, 3, luaFieldExtraDirs, g.stringList(tool.ExtraSearchDirs))
	}

	v := tool.Verify
	g.open(buf, 3, luaFieldVerify)
	if v.SHA256 != "" {
		g.field(buf, 4, luaFieldSHA256, g.quoteLuaString(v.SHA256))
	}
	if v.MinisignKey != "" {
		g.field(buf, 4, luaFieldMinisignKey, g.quoteLuaString(v.MinisignKey))
	}
	if v.PGPKeyring != "" {
		g.field(buf, 4, luaFieldPGPKeyring, g.quoteLuaString(v.PGPKeyring))
	}
	if v.SignatureSuffix != "" {
		g.field(buf, 4, luaFieldSignatureSuffix, g.quoteLuaString(v.SignatureSuffix))
	}
	g.close(buf, 3, false)
	g.close(buf, 2, false)
}

func (g *Generator) open(buf *bytes.Buffer, depth int, name string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(name)
	buf.WriteString(" = {\n")
}

func (g *Generator) close(buf *bytes.Buffer, depth int, blankLine bool) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString("},\n")
	if blankLine {
		buf.WriteString("\n")
	}
}

func (g *Generator) field(buf *bytes.Buffer, depth int, name, value string) {
	buf.WriteString(strings.Repeat(g.indent, depth))
	buf.WriteString(name)
	buf.WriteString(" = ")
	buf.WriteString(value)
	buf.WriteString(",\n")
}

// stringList renders an inline Lua array
func (g *Generator) stringList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, g.quoteLuaString(item))
	}
	return "{ " + strings.Join(quoted, ", ") + " }"
}

// seconds renders a duration as a Lua number of seconds
func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	// Use double quotes and escape special characters
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"") // Escape double quotes
	s = strings.ReplaceAll(s, "\n", "\\n")  // Escape newlines
	s = strings.ReplaceAll(s, "\r", "\\r")  // Escape carriage returns
	s = strings.ReplaceAll(s, "\t", "\\t")  // Escape tabs
	return "\"" + s + "\""
}
