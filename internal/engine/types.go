package engine

import (
	"fmt"
	"strings"
)

// SourceKind identifies where a tool executable comes from
type SourceKind int

const (
	// SourceCustom is a path given explicitly by the caller
	SourceCustom SourceKind = iota
	// SourceManaged is the copy installed by toolsmith
	SourceManaged
	// SourceSystem is an installation found on the host
	SourceSystem
)

// String returns the string representation of the source kind
func (k SourceKind) String() string {
	switch k {
	case SourceCustom:
		return "custom"
	case SourceManaged:
		return "managed"
	case SourceSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Source is an immutable tool source. Path is empty for SourceManaged,
// whose location is resolved at validation time.
type Source struct {
	Kind SourceKind
	Path string
}

// Custom returns a source for an explicit path
func Custom(path string) Source {
	return Source{Kind: SourceCustom, Path: path}
}

// Managed returns the managed source
func Managed() Source {
	return Source{Kind: SourceManaged}
}

// System returns a source for a host installation
func System(path string) Source {
	return Source{Kind: SourceSystem, Path: path}
}

// Priority orders sources; lower wins
func (s Source) Priority() int {
	return int(s.Kind)
}

// String renders the source as kind or kind:path
func (s Source) String() string {
	if s.Path == "" {
		return s.Kind.String()
	}
	return s.Kind.String() + ":" + s.Path
}

// MarshalText renders the source for JSON and YAML output
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the form produced by MarshalText
func (s *Source) UnmarshalText(text []byte) error {
	kind, path, _ := strings.Cut(string(text), ":")
	switch kind {
	case "custom":
		*s = Custom(path)
	case "managed":
		*s = Managed()
	case "system":
		*s = System(path)
	default:
		return fmt.Errorf("unknown tool source %q", text)
	}
	return nil
}

// State is the validation state of a ToolManager
type State int

const (
	// StateUnvalidated means Validate has not run
	StateUnvalidated State = iota
	// StateAvailable means the executable ran and reported a version
	StateAvailable
	// StateUnavailable means validation failed
	StateUnavailable
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUnvalidated:
		return "unvalidated"
	case StateAvailable:
		return "available"
	case StateUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// ToolInfo describes a validated executable
type ToolInfo struct {
	Version       string   `json:"version" yaml:"version"`
	Path          string   `json:"path" yaml:"path"`
	IsWorking     bool     `json:"is_working" yaml:"is_working"`
	InputFormats  []string `json:"supported_input_formats" yaml:"supported_input_formats"`
	OutputFormats []string `json:"supported_output_formats" yaml:"supported_output_formats"`
	DetectedPaths []string `json:"detected_paths" yaml:"detected_paths"`
	SearchPaths   []string `json:"search_paths" yaml:"search_paths"`
}

// VersionInfo summarizes the update situation of a tool
type VersionInfo struct {
	Current           string   `json:"current,omitempty" yaml:"current,omitempty"`
	Latest            string   `json:"latest" yaml:"latest"`
	AvailableVersions []string `json:"available_versions" yaml:"available_versions"`
	IsUpdateAvailable bool     `json:"is_update_available" yaml:"is_update_available"`
}
