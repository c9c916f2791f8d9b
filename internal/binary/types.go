package binary

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
)

// ToolKind identifies a tool managed by toolsmith
type ToolKind string

const (
	// Converter is the pandoc document converter
	Converter ToolKind = "converter"
	// Typesetter is the typst typesetting engine
	Typesetter ToolKind = "typesetter"
)

// AllKinds lists every supported tool kind
var AllKinds = []ToolKind{Converter, Typesetter}

// String returns the string representation of the tool kind
func (k ToolKind) String() string {
	return string(k)
}

// ProgramName returns the executable base name without platform suffix
func (k ToolKind) ProgramName() string {
	switch k {
	case Converter:
		return "pandoc"
	case Typesetter:
		return "typst"
	default:
		return string(k)
	}
}

// Repo returns the upstream repository in owner/name form
func (k ToolKind) Repo() string {
	switch k {
	case Converter:
		return "jgm/pandoc"
	case Typesetter:
		return "typst/typst"
	default:
		return ""
	}
}

// BundledDir is the directory name under the resource root holding the
// bundled copy of the tool.
func (k ToolKind) BundledDir() string {
	return k.ProgramName()
}

// PortableDir is the directory name under the per-user data root holding a
// downloaded portable copy of the tool.
func (k ToolKind) PortableDir() string {
	return k.ProgramName() + "-portable"
}

// ParseToolKind accepts either the kind name or the program name.
func ParseToolKind(s string) (ToolKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "converter", "pandoc":
		return Converter, nil
	case "typesetter", "typst":
		return Typesetter, nil
	default:
		return "", fmt.Errorf("unknown tool %q (expected pandoc or typst)", s)
	}
}

// Release is an immutable snapshot of one upstream release
type Release struct {
	Tag         string    `json:"tag" yaml:"tag"`
	DisplayName string    `json:"display_name" yaml:"display_name"`
	Notes       string    `json:"notes,omitempty" yaml:"notes,omitempty"`
	PublishedAt time.Time `json:"published_at" yaml:"published_at"`
	Assets      []Asset   `json:"assets" yaml:"assets"`
}

// Asset is one downloadable file attached to a release.
// Size is zero when unknown.
type Asset struct {
	Name        string `json:"name" yaml:"name"`
	DownloadURL string `json:"download_url" yaml:"download_url"`
	Size        uint64 `json:"size" yaml:"size"`
	ContentType string `json:"content_type" yaml:"content_type"`
}

// DownloadConfig describes the target platform of a download. It is built
// once per operation and passed down explicitly.
type DownloadConfig struct {
	TargetOS   string
	TargetArch string
	UseMirrors bool
}

// CurrentDownloadConfig builds a DownloadConfig from detected platform info
func CurrentDownloadConfig(info *platform.Info, useMirrors bool) DownloadConfig {
	if info == nil {
		return DownloadConfig{UseMirrors: useMirrors}
	}
	return DownloadConfig{
		TargetOS:   info.OS,
		TargetArch: info.Arch,
		UseMirrors: useMirrors,
	}
}

// MirrorList is an ordered list of URL prefixes tried top to bottom.
// The empty prefix means the origin URL unchanged.
type MirrorList []string

// DefaultMirrors is the built-in mirror list
var DefaultMirrors = MirrorList{
	"https://hub.gitmirror.com/",
	"https://gh.ddlc.top/",
	"",
}

// Normalize returns a copy of the list whose last entry is the origin
// prefix. Duplicate prefixes are dropped, keeping the first occurrence.
func (m MirrorList) Normalize() MirrorList {
	out := make(MirrorList, 0, len(m)+1)
	seen := make(map[string]bool, len(m))
	for _, prefix := range m {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" || seen[prefix] {
			continue
		}
		seen[prefix] = true
		out = append(out, prefix)
	}
	return append(out, "")
}

// URL builds the candidate URL for one mirror prefix
func (m MirrorList) URL(prefix, origin string) string {
	if prefix == "" {
		return origin
	}
	return prefix + origin
}

// mirrorLabel names a mirror for log output
func mirrorLabel(prefix string) string {
	if prefix == "" {
		return "origin"
	}
	return prefix
}

// Progress reports download progress for one attempt.
// Total is zero when the server does not announce a length.
type Progress struct {
	Downloaded uint64
	Total      uint64
	Percentage float64
}
