// Package engine resolves, discovers, downloads, and updates the external
// tools toolsmith manages.
//
// Resolution walks candidate sources in a fixed priority order (custom,
// then managed, then system) and returns the first one whose executable
// actually runs. Provisioning fetches release metadata from the registry,
// picks the asset for the target platform, downloads it through the
// mirror list, optionally verifies it, and extracts it into the managed
// directory.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/locator"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/lockfile"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
)

const (
	// DefaultConcurrency bounds parallel validation in Discover
	DefaultConcurrency = 4
	// releaseSearchLimit is how many releases Download searches for a tag
	releaseSearchLimit = 50
	// versionListLimit is how many versions VersionInfo reports
	versionListLimit = 10
	// notFoundListed is how many searched locations a not-found error names
	notFoundListed = 5
)

// Registry is the release metadata source
type Registry interface {
	LatestRelease(ctx context.Context, repo string) (*binary.Release, error)
	Releases(ctx context.Context, repo string, limit int) ([]binary.Release, error)
	Tags(ctx context.Context, repo string) ([]string, error)
}

// Engine orchestrates tool resolution and provisioning
type Engine struct {
	registry    Registry
	locator     *locator.Locator
	installer   *binary.Installer
	prober      *prober
	platform    *platform.Info
	useMirrors  bool
	verify      map[binary.ToolKind]binary.VerifyOptions
	concurrency int
	logger      logx.Logger

	mu    sync.Mutex
	locks map[binary.ToolKind]*sync.Mutex
}

// Config holds the collaborators of an Engine
type Config struct {
	// Registry and Locator are required
	Registry Registry
	Locator  *locator.Locator
	// Downloader defaults to binary.NewDownloader with default settings
	Downloader *binary.Downloader
	// Platform is the download target; nil means linux/amd64
	Platform *platform.Info
	// UseMirrors routes downloads through the downloader's mirror list
	UseMirrors bool
	// Verify configures archive verification per tool
	Verify map[binary.ToolKind]binary.VerifyOptions
	// Concurrency bounds parallel validation (default: DefaultConcurrency)
	Concurrency int
	Logger      logx.Logger
}

// New creates an engine
func New(cfg Config) (*Engine, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.Locator == nil {
		return nil, fmt.Errorf("locator is required")
	}

	logger := logx.OrNop(cfg.Logger)

	downloader := cfg.Downloader
	if downloader == nil {
		downloader = binary.NewDownloader(binary.DownloaderConfig{Logger: logger})
	}
	installer, err := binary.NewInstaller(binary.InstallerConfig{Downloader: downloader, Logger: logger})
	if err != nil {
		return nil, err
	}

	info := cfg.Platform
	if info == nil {
		info = &platform.Info{OS: "linux", Arch: "amd64"}
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	return &Engine{
		registry:    cfg.Registry,
		locator:     cfg.Locator,
		installer:   installer,
		prober:      &prober{locator: cfg.Locator, logger: logger},
		platform:    info,
		useMirrors:  cfg.UseMirrors,
		verify:      cfg.Verify,
		concurrency: concurrency,
		logger:      logger,
		locks:       make(map[binary.ToolKind]*sync.Mutex),
	}, nil
}

// Locator returns the engine's locator
func (e *Engine) Locator() *locator.Locator {
	return e.locator
}

// NewManager creates an unvalidated manager for a source
func (e *Engine) NewManager(kind binary.ToolKind, source Source) *ToolManager {
	return &ToolManager{Kind: kind, Source: source, prober: e.prober}
}

// downloadConfig is built once per operation
func (e *Engine) downloadConfig() binary.DownloadConfig {
	return binary.CurrentDownloadConfig(e.platform, e.useMirrors)
}

// Resolve returns the first working executable in priority order: the
// custom path if given, then the managed copy, then every search path.
func (e *Engine) Resolve(ctx context.Context, kind binary.ToolKind, customPath string) (*ToolInfo, error) {
	searchPaths := e.locator.SearchPaths(kind)

	var candidates []*ToolManager
	var searched []string
	if customPath != "" {
		candidates = append(candidates, e.NewManager(kind, Custom(customPath)))
		searched = append(searched, customPath)
	}
	candidates = append(candidates, e.NewManager(kind, Managed()))
	searched = append(searched, e.locator.ManagedRoots(kind)...)
	for _, p := range searchPaths {
		candidates = append(candidates, e.NewManager(kind, System(p)))
	}
	searched = append(searched, searchPaths...)

	for _, m := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := m.Validate(ctx); err != nil {
			e.logger.Debug("candidate rejected", "tool", kind.ProgramName(), "source", m.Source.String(), "error", err)
			continue
		}

		info := m.Info
		info.SearchPaths = searchPaths
		info.DetectedPaths = existingPaths(searchPaths)
		e.logger.Info("tool resolved", "tool", kind.ProgramName(), "source", m.Source.String(), "path", info.Path, "version", info.Version)
		return info, nil
	}

	shown := searched
	if len(shown) > notFoundListed {
		shown = shown[:notFoundListed]
	}
	return nil, fmt.Errorf("%w: no working %s found after searching %d locations (%s)",
		binary.ErrNotFound, kind.ProgramName(), len(searched), strings.Join(shown, ", "))
}

// Discover validates the managed source and every existing search path
// concurrently. The result keeps discovery order.
func (e *Engine) Discover(ctx context.Context, kind binary.ToolKind) []*ToolManager {
	managers := []*ToolManager{e.NewManager(kind, Managed())}
	for _, p := range e.locator.SearchPaths(kind) {
		if locator.IsFile(p) {
			managers = append(managers, e.NewManager(kind, System(p)))
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for _, m := range managers {
		g.Go(func() error {
			if err := m.Validate(ctx); err != nil {
				e.logger.Debug("source unavailable", "tool", kind.ProgramName(), "source", m.Source.String(), "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return managers
}

// Best returns the highest priority available manager, or nil
func (e *Engine) Best(ctx context.Context, kind binary.ToolKind) *ToolManager {
	for _, m := range e.Discover(ctx, kind) {
		if m.Available {
			return m
		}
	}
	return nil
}

// LatestRelease fetches the newest release of kind
func (e *Engine) LatestRelease(ctx context.Context, kind binary.ToolKind) (*binary.Release, error) {
	release, err := e.registry.LatestRelease(ctx, kind.Repo())
	if err != nil {
		return nil, fmt.Errorf("fetch latest %s release: %w", kind.ProgramName(), err)
	}
	return release, nil
}

// Releases fetches up to limit releases of kind (all when limit <= 0)
func (e *Engine) Releases(ctx context.Context, kind binary.ToolKind, limit int) ([]binary.Release, error) {
	releases, err := e.registry.Releases(ctx, kind.Repo(), limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s releases: %w", kind.ProgramName(), err)
	}
	return releases, nil
}

// Tags lists the git tags of kind's repository, newest first
func (e *Engine) Tags(ctx context.Context, kind binary.ToolKind) ([]string, error) {
	tags, err := e.registry.Tags(ctx, kind.Repo())
	if err != nil {
		return nil, fmt.Errorf("list %s tags: %w", kind.ProgramName(), err)
	}
	return tags, nil
}

// findRelease returns the release tagged version, or the latest one when
// version is empty. A leading "v" on either side is ignored.
func (e *Engine) findRelease(ctx context.Context, kind binary.ToolKind, version string) (*binary.Release, error) {
	if version == "" {
		return e.LatestRelease(ctx, kind)
	}

	releases, err := e.Releases(ctx, kind, releaseSearchLimit)
	if err != nil {
		return nil, err
	}
	want := strings.TrimPrefix(version, "v")
	for i := range releases {
		if releases[i].Tag == version || strings.TrimPrefix(releases[i].Tag, "v") == want {
			return &releases[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s release %s not among the latest %d releases",
		binary.ErrNotFound, kind.ProgramName(), version, releaseSearchLimit)
}

// Download fetches the platform archive of a release into targetDir and
// returns the archive path. An empty version means the latest release.
func (e *Engine) Download(ctx context.Context, kind binary.ToolKind, version, targetDir string) (string, error) {
	release, err := e.findRelease(ctx, kind, version)
	if err != nil {
		return "", err
	}

	path, _, err := e.installer.Fetch(ctx, kind, release, targetDir, e.downloadConfig())
	if err != nil {
		return "", err
	}
	return path, nil
}

// Extract unpacks an archive into targetDir and returns targetDir
func (e *Engine) Extract(archivePath, targetDir string) (string, error) {
	return e.installer.Extractor().Extract(archivePath, targetDir)
}

func (e *Engine) lockFor(kind binary.ToolKind) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[kind]
	if !ok {
		l = &sync.Mutex{}
		e.locks[kind] = l
	}
	return l
}

// UpdateManaged installs the latest release of kind into the managed
// directory, overwriting the previous copy, and returns the new tag.
// Concurrent updates of the same tool are serialized within the process,
// and a lock file next to the managed directory rejects a second process.
func (e *Engine) UpdateManaged(ctx context.Context, kind binary.ToolKind) (string, error) {
	lock := e.lockFor(kind)
	lock.Lock()
	defer lock.Unlock()

	logger := logx.With(e.logger, "op", uuid.NewString(), "tool", kind.ProgramName())

	dir := e.locator.ManagedDir(kind)
	if dir == "" {
		return "", fmt.Errorf("%w: no managed directory configured for %s", binary.ErrIO, kind.ProgramName())
	}

	fileLock, err := lockfile.Acquire(ctx, dir+".lock")
	if err != nil {
		return "", fmt.Errorf("update %s: %w", kind.ProgramName(), err)
	}
	defer func() {
		if err := fileLock.Release(); err != nil {
			logger.Warn("failed to release install lock", "path", fileLock.Path(), "error", err)
		}
	}()

	release, err := e.LatestRelease(ctx, kind)
	if err != nil {
		return "", err
	}
	logger.Info("updating managed tool", "version", release.Tag, "dir", dir)

	result, err := e.installer.Install(ctx, binary.InstallRequest{
		Kind:      kind,
		Release:   release,
		TargetDir: dir,
		Config:    e.downloadConfig(),
		Verify:    e.verify[kind],
		Logger:    logger,
	})
	if err != nil {
		logger.Error("update failed", "error", err)
		return "", fmt.Errorf("update %s: %w", kind.ProgramName(), err)
	}

	logger.Info("managed tool updated", "version", result.Version, "asset", result.Asset.Name, "duration", result.Duration.String())
	return release.Tag, nil
}

// managedVersion validates the managed copy and returns its version, or
// "none" when it is unavailable.
func (e *Engine) managedVersion(ctx context.Context, kind binary.ToolKind) string {
	m := e.NewManager(kind, Managed())
	if err := m.Validate(ctx); err != nil {
		return "none"
	}
	return m.Info.Version
}

// CheckUpdateAvailable compares current with the latest release tag after
// normalization. An empty current means the managed copy's version.
func (e *Engine) CheckUpdateAvailable(ctx context.Context, kind binary.ToolKind, current string) (bool, error) {
	if current == "" {
		current = e.managedVersion(ctx, kind)
	}

	latest, err := e.LatestRelease(ctx, kind)
	if err != nil {
		return false, err
	}
	return !binary.VersionsEqual(current, latest.Tag), nil
}

// VersionInfo reports current and latest versions and the most recent
// version tags. Without a current version an update is always available.
// When the release list cannot be fetched the git tags are used instead.
func (e *Engine) VersionInfo(ctx context.Context, kind binary.ToolKind, current string) (*VersionInfo, error) {
	latest, err := e.LatestRelease(ctx, kind)
	if err != nil {
		return nil, err
	}

	var versions []string
	releases, err := e.Releases(ctx, kind, versionListLimit)
	if err == nil {
		for _, r := range releases {
			versions = append(versions, r.Tag)
		}
	} else {
		e.logger.Warn("release list unavailable, falling back to git tags", "tool", kind.ProgramName(), "error", err)
		tags, tagErr := e.Tags(ctx, kind)
		if tagErr != nil {
			return nil, errors.Join(err, tagErr)
		}
		if len(tags) > versionListLimit {
			tags = tags[:versionListLimit]
		}
		versions = tags
	}

	info := &VersionInfo{
		Current:           current,
		Latest:            latest.Tag,
		AvailableVersions: versions,
		IsUpdateAvailable: true,
	}
	if current != "" {
		info.IsUpdateAvailable = !binary.VersionsEqual(current, latest.Tag)
	}
	return info, nil
}

func existingPaths(paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}
