// Package platform detects the host OS, architecture, and Linux distribution.
//
// The detected Info drives asset selection for downloads, the per-OS tool
// search paths, and the read-only platform table exposed to Lua
// configuration. Linux distribution details come from gopsutil; when that
// detection fails the package falls back to OS and architecture only.
package platform

import (
	"context"
	"fmt"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyNixOS   = "nixos"   // NixOS
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // "amd64", "arm64", "arm", ... (normalized)
	ArchRaw  string // original GOARCH or override value
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "nixos")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information if this is a Linux platform.
// Returns nil for non-Linux platforms or if distro detection failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

// IsLinux returns true if the platform is Linux.
func (i *Info) IsLinux() bool {
	return i.OS == "linux"
}

// IsMacOS returns true if the platform is macOS.
func (i *Info) IsMacOS() bool {
	return i.OS == "darwin"
}

// IsWindows returns true if the platform is Windows.
func (i *Info) IsWindows() bool {
	return i.OS == "windows"
}

// IsAMD64 returns true if the architecture is amd64.
func (i *Info) IsAMD64() bool {
	return i.Arch == "amd64"
}

// IsARM64 returns true if the architecture is arm64.
func (i *Info) IsARM64() bool {
	return i.Arch == "arm64"
}

// IsAppleSilicon returns true if running on Apple Silicon (macOS + arm64).
func (i *Info) IsAppleSilicon() bool {
	return i.OS == "darwin" && i.Arch == "arm64"
}

// IsFamily reports whether a Linux host belongs to the given family
func (i *Info) IsFamily(family string) bool {
	canonical := mapFamily(family)
	return i.OS == "linux" && canonical != FamilyUnknown && i.Family == canonical
}

// ExeSuffix returns ".exe" on Windows and "" elsewhere
func (i *Info) ExeSuffix() string {
	if i.IsWindows() {
		return ".exe"
	}
	return ""
}

// String renders the platform as os/arch, with the distro when known
func (i *Info) String() string {
	s := i.OS + "/" + i.Arch
	if d := i.GetDistro(); d != nil {
		s += fmt.Sprintf(" (%s %s, %s family)", d.ID, d.Version, d.Family)
	}
	return s
}

// WithTarget returns a copy of i retargeted to another OS and architecture.
// Empty values keep the detected ones. Distro fields are dropped when the
// OS changes.
func (i *Info) WithTarget(goos, arch string) *Info {
	out := *i
	if goos != "" {
		out.OS = NormalizeOS(goos)
		if out.OS != i.OS {
			out.Platform, out.Family, out.Version = "", "", ""
		}
	}
	if arch != "" {
		out.ArchRaw = arch
		out.Arch = NormalizeArch(arch)
	}
	return &out
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. It backs --os/--arch overrides
// and tests.
type StaticDetector struct {
	Info *Info
}

// Detect returns a copy of the configured info
func (s StaticDetector) Detect(ctx context.Context) (*Info, error) {
	if s.Info == nil {
		return nil, fmt.Errorf("static detector has no platform info")
	}
	out := *s.Info
	return &out, nil
}
