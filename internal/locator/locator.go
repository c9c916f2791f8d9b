// Package locator finds candidate executables for the managed tools and
// checks whether they actually run.
//
// Candidates come from three places: the managed directories populated by
// toolsmith itself, the first PATH match, and a fixed list of per-OS
// install locations (package managers, language toolchains, installers).
package locator

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
)

// Locator resolves search paths and managed install locations
type Locator struct {
	env         Env
	runner      Runner
	resourceDir string
	dataDir     string
	extraDirs   map[binary.ToolKind][]string
	logger      logx.Logger
}

// Config holds the inputs of a Locator
type Config struct {
	Env Env
	// Runner defaults to ExecRunner{}
	Runner Runner
	// ResourceDir holds bundled tools (<resource>/<program>)
	ResourceDir string
	// DataDir holds user-downloaded tools (<data>/<program>-portable)
	DataDir string
	// ExtraDirs are searched after the built-in locations
	ExtraDirs map[binary.ToolKind][]string
	Logger    logx.Logger
}

// New creates a locator
func New(cfg Config) *Locator {
	runner := cfg.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	if cfg.Env.OS == "" {
		cfg.Env.OS = "linux"
	}
	return &Locator{
		env:         cfg.Env,
		runner:      runner,
		resourceDir: cfg.ResourceDir,
		dataDir:     cfg.DataDir,
		extraDirs:   cfg.ExtraDirs,
		logger:      logx.OrNop(cfg.Logger),
	}
}

// Runner returns the runner used for probes
func (l *Locator) Runner() Runner {
	return l.runner
}

// OS returns the OS the locator searches for
func (l *Locator) OS() string {
	return l.env.OS
}

// ExecutableName returns the executable file name of kind on the target OS
func (l *Locator) ExecutableName(kind binary.ToolKind) string {
	return binary.ExecutableName(kind, l.env.OS)
}

// SearchPaths returns the system candidates for kind in priority order:
// the first PATH match, then the platform install locations, then the
// configured extra directories. Duplicates are dropped.
func (l *Locator) SearchPaths(kind binary.ToolKind) []string {
	var paths []string
	seen := make(map[string]bool)
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}

	if l.env.LookPath != nil {
		if p, err := l.env.LookPath(kind.ProgramName()); err == nil {
			add(p)
		}
	}

	for _, p := range l.platformPaths(kind) {
		add(p)
	}

	exe := l.ExecutableName(kind)
	for _, dir := range l.extraDirs[kind] {
		add(l.join(dir, exe))
	}

	return paths
}

// platformPaths lists the per-OS install locations. Locations rooted at
// an unset environment variable are omitted.
func (l *Locator) platformPaths(kind binary.ToolKind) []string {
	exe := l.ExecutableName(kind)
	e := l.env

	var paths []string
	add := func(base string, elem ...string) {
		if base == "" {
			return
		}
		paths = append(paths, l.join(append([]string{base}, elem...)...))
	}
	cargo := func() {
		add(e.CargoHome, "bin", exe)
		add(e.Home, ".cargo", "bin", exe)
	}

	switch platform.NormalizeOS(e.OS) {
	case "windows":
		if kind == binary.Typesetter {
			add(e.CargoHome, "bin", exe)
			add(e.UserProfile, ".cargo", "bin", exe)
			add(e.UserProfile, "scoop", "apps", "typst", "current", exe)
			add(e.LocalAppData, "Microsoft", "WinGet", "Links", exe)
			add(e.ChocolateyInstall, "bin", exe)
			return paths
		}
		add(e.UserProfile, "AppData", "Roaming", "pandoc", exe)
		add(e.UserProfile, "AppData", "Local", "pandoc", exe)
		add(e.UserProfile, "AppData", "Local", "Pandoc", exe)
		add(e.UserProfile, "scoop", "apps", "pandoc", "current", exe)
		add(`C:\Program Files\Pandoc`, exe)
		add(`C:\Program Files (x86)\Pandoc`, exe)
		add(e.ChocolateyInstall, "bin", exe)
		add(e.CondaPrefix, "Scripts", exe)
		add(e.CondaPrefix, "bin", exe)

	case "darwin":
		add("/usr/local/bin", exe)
		add("/opt/homebrew/bin", exe)
		if kind == binary.Converter {
			add(e.Home, "Library", "Haskell", "bin", exe)
		} else {
			cargo()
		}
		add(e.Home, ".local", "bin", exe)
		if kind == binary.Converter {
			add(e.Home, ".cabal", "bin", exe)
		}
		add("/usr/bin", exe)

	default:
		add("/usr/bin", exe)
		add("/usr/local/bin", exe)
		add(e.Home, ".local", "bin", exe)
		if kind == binary.Converter {
			add(e.Home, ".cabal", "bin", exe)
		} else {
			cargo()
		}
		add("/snap/bin", exe)
		add("/home/linuxbrew/.linuxbrew/bin", exe)
		add(e.Home, ".nix-profile", "bin", exe)
		if e.Family == platform.FamilyNixOS {
			add("/run/current-system/sw/bin", exe)
		}
	}
	return paths
}

// join builds a path with the target OS separator
func (l *Locator) join(elem ...string) string {
	if platform.NormalizeOS(l.env.OS) != "windows" {
		return path.Join(elem...)
	}
	parts := make([]string, 0, len(elem))
	for i, e := range elem {
		if i > 0 {
			e = strings.TrimLeft(e, `\/`)
		}
		if i < len(elem)-1 {
			e = strings.TrimRight(e, `\/`)
		}
		if e != "" {
			parts = append(parts, e)
		}
	}
	return strings.Join(parts, `\`)
}

// Validate reports whether path exists and `path --version` exits 0.
// Every failure, including a timeout, yields false.
func (l *Locator) Validate(ctx context.Context, path string) bool {
	if !IsFile(path) {
		return false
	}
	result, err := l.runner.Run(ctx, path, "--version")
	if err != nil {
		l.logger.Debug("probe failed", "path", path, "error", err)
		return false
	}
	if !result.Success() {
		l.logger.Debug("probe exited non-zero", "path", path, "exit_code", result.ExitCode)
		return false
	}
	return true
}

// FindFirstValid returns the first search path that validates
func (l *Locator) FindFirstValid(ctx context.Context, kind binary.ToolKind) (string, bool) {
	for _, p := range l.SearchPaths(kind) {
		if l.Validate(ctx, p) {
			return p, true
		}
	}
	return "", false
}

// ManagedRoots returns the managed directories of kind in lookup order:
// the bundled resource directory, then the portable data directory.
func (l *Locator) ManagedRoots(kind binary.ToolKind) []string {
	var roots []string
	if l.resourceDir != "" {
		roots = append(roots, filepath.Join(l.resourceDir, kind.BundledDir()))
	}
	if l.dataDir != "" {
		roots = append(roots, filepath.Join(l.dataDir, kind.PortableDir()))
	}
	return roots
}

// ManagedDir is the directory updates are installed into
func (l *Locator) ManagedDir(kind binary.ToolKind) string {
	roots := l.ManagedRoots(kind)
	if len(roots) == 0 {
		return ""
	}
	return roots[0]
}

// ManagedPath finds the managed executable of kind. Within each root it
// checks exe, bin/exe, then every subdirectory in name order. The first
// existing file wins.
func (l *Locator) ManagedPath(kind binary.ToolKind) (string, bool) {
	exe := l.ExecutableName(kind)
	for _, root := range l.ManagedRoots(kind) {
		if p, ok := findInDir(root, exe); ok {
			return p, true
		}
	}
	return "", false
}

func findInDir(root, exe string) (string, bool) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return "", false
	}

	candidates := []string{
		filepath.Join(root, exe),
		filepath.Join(root, "bin", exe),
	}
	for _, c := range candidates {
		if IsFile(c) {
			return c, true
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return "", false
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sortManagedDirs(dirs)

	for _, dir := range dirs {
		for _, c := range []string{
			filepath.Join(root, dir, exe),
			filepath.Join(root, dir, "bin", exe),
		} {
			if IsFile(c) {
				return c, true
			}
		}
	}
	return "", false
}

// sortManagedDirs puts versioned directories such as "pandoc-3.7.0.2" first,
// newest version first, so an update installed next to an older unpacked
// release wins. Other directories keep name order after them.
func sortManagedDirs(dirs []string) {
	sort.SliceStable(dirs, func(i, j int) bool {
		vi, vj := dirVersion(dirs[i]), dirVersion(dirs[j])
		switch {
		case vi != "" && vj != "":
			return binary.CompareVersions(vi, vj) > 0
		case vi != "" || vj != "":
			return vi != ""
		default:
			return dirs[i] < dirs[j]
		}
	})
}

// dirVersion returns the first "-" separated field of name that is a dotted
// number, or "" when there is none
func dirVersion(name string) string {
	for _, field := range strings.Split(name, "-") {
		v := strings.TrimPrefix(field, "v")
		if v == "" || !isNumericVersion(v) {
			continue
		}
		return v
	}
	return ""
}

func isNumericVersion(s string) bool {
	for _, part := range strings.Split(s, ".") {
		if part == "" {
			return false
		}
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}
	return true
}

// IsFile reports whether path exists and is not a directory
func IsFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
