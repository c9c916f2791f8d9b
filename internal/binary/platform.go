package binary

import (
	"fmt"
	"strings"
)

// Default patterns used when an OS/arch pair has no explicit entry
const (
	defaultConverterPattern  = "linux-amd64"
	defaultTypesetterPattern = "x86_64-unknown-linux-musl"
)

// normalizeOS maps OS aliases onto GOOS names
func normalizeOS(goos string) string {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "darwin", "macos", "osx", "mac":
		return "darwin"
	case "windows", "win32", "win":
		return "windows"
	case "linux":
		return "linux"
	default:
		return strings.ToLower(strings.TrimSpace(goos))
	}
}

// normalizeArch maps architecture aliases onto GOARCH names
func normalizeArch(arch string) string {
	switch strings.ToLower(strings.TrimSpace(arch)) {
	case "amd64", "x86_64", "x64":
		return "amd64"
	case "arm64", "aarch64":
		return "arm64"
	case "arm", "armv7", "armv7l":
		return "arm"
	default:
		return strings.ToLower(strings.TrimSpace(arch))
	}
}

// Patterns returns the asset-name substrings acceptable for a tool on the
// given platform, most specific first. The result is never empty: pairs
// without an explicit entry get the Linux x86_64 default.
func Patterns(kind ToolKind, goos, arch string) []string {
	goos = normalizeOS(goos)
	arch = normalizeArch(arch)

	switch kind {
	case Typesetter:
		return typesetterPatterns(goos, arch)
	default:
		return converterPatterns(goos, arch)
	}
}

// converterPatterns follows pandoc release names like
// pandoc-3.7.0.2-arm64-macOS.zip
func converterPatterns(goos, arch string) []string {
	switch goos {
	case "windows":
		// pandoc only publishes x86_64 Windows builds
		return []string{"windows-x86_64"}
	case "darwin":
		switch arch {
		case "arm64":
			return []string{"arm64-macOS", "macOS"}
		case "amd64":
			return []string{"x86_64-macOS", "macOS"}
		default:
			return []string{"macOS"}
		}
	case "linux":
		if arch == "arm64" {
			return []string{"linux-arm64"}
		}
		return []string{defaultConverterPattern}
	default:
		return []string{defaultConverterPattern}
	}
}

// typesetterPatterns follows typst release names like
// typst-x86_64-apple-darwin.tar.xz
func typesetterPatterns(goos, arch string) []string {
	switch goos + "/" + arch {
	case "windows/amd64":
		return []string{"x86_64-pc-windows-msvc"}
	case "windows/arm64":
		return []string{"aarch64-pc-windows-msvc", "x86_64-pc-windows-msvc"}
	case "darwin/arm64":
		return []string{"aarch64-apple-darwin"}
	case "darwin/amd64":
		return []string{"x86_64-apple-darwin"}
	case "linux/amd64":
		return []string{defaultTypesetterPattern}
	case "linux/arm64":
		return []string{"aarch64-unknown-linux-musl"}
	case "linux/arm":
		return []string{"armv7-unknown-linux-musleabi"}
	default:
		return []string{defaultTypesetterPattern}
	}
}

// ExecutableName returns the executable file name for a tool on the given OS
func ExecutableName(kind ToolKind, goos string) string {
	if normalizeOS(goos) == "windows" {
		return kind.ProgramName() + ".exe"
	}
	return kind.ProgramName()
}

// SelectAsset returns the first asset matching the patterns in order.
// For one pattern, archives the extractor can unpack win over installers.
func SelectAsset(assets []Asset, patterns []string) (*Asset, error) {
	for _, pattern := range patterns {
		var fallback *Asset
		for i := range assets {
			if !strings.Contains(assets[i].Name, pattern) {
				continue
			}
			if _, err := DetectFormat(assets[i].Name); err == nil {
				return &assets[i], nil
			}
			if fallback == nil {
				fallback = &assets[i]
			}
		}
		if fallback != nil {
			return fallback, nil
		}
	}

	names := make([]string, 0, len(assets))
	for _, a := range assets {
		names = append(names, a.Name)
	}
	return nil, fmt.Errorf("%w: no compatible asset found\navailable assets: %s\nlooked for patterns: %q",
		ErrUnsupportedPlatform, strings.Join(names, ", "), patterns)
}

// SelectAssetFor matches an asset for a tool using the config's target platform
func SelectAssetFor(kind ToolKind, release *Release, cfg DownloadConfig) (*Asset, error) {
	if release == nil {
		return nil, fmt.Errorf("%w: release is nil", ErrNotFound)
	}
	asset, err := SelectAsset(release.Assets, Patterns(kind, cfg.TargetOS, cfg.TargetArch))
	if err != nil {
		return nil, fmt.Errorf("%s %s for %s-%s: %w", kind.ProgramName(), release.Tag, cfg.TargetOS, cfg.TargetArch, err)
	}
	return asset, nil
}
