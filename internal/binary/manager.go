package binary

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
)

// Installer orchestrates asset selection, download, verification, and
// extraction of a release into a directory.
type Installer struct {
	downloader *Downloader
	verifier   *Verifier
	extractor  *Extractor
	logger     logx.Logger
}

// InstallerConfig holds the collaborators of an Installer
type InstallerConfig struct {
	// Downloader is required
	Downloader *Downloader
	// Extractor defaults to NewExtractor(Logger)
	Extractor *Extractor
	// Logger defaults to a no-op logger
	Logger logx.Logger
}

// NewInstaller creates a new installer
func NewInstaller(cfg InstallerConfig) (*Installer, error) {
	if cfg.Downloader == nil {
		return nil, fmt.Errorf("downloader is required")
	}

	logger := logx.OrNop(cfg.Logger)
	extractor := cfg.Extractor
	if extractor == nil {
		extractor = NewExtractor(logger)
	}

	return &Installer{
		downloader: cfg.Downloader,
		verifier:   NewVerifier(cfg.Downloader, logger),
		extractor:  extractor,
		logger:     logger,
	}, nil
}

// InstallRequest describes one install of a release
type InstallRequest struct {
	Kind      ToolKind
	Release   *Release
	TargetDir string
	Config    DownloadConfig
	Verify    VerifyOptions
	// KeepArchive leaves the downloaded archive next to the extracted files
	KeepArchive bool
	// Logger overrides the installer's logger for this request
	Logger logx.Logger
}

// InstallResult contains information about a completed install
type InstallResult struct {
	Kind        ToolKind
	Version     string
	Asset       Asset
	ArchivePath string
	Dir         string
	Verified    []VerificationMethod
	Duration    time.Duration
}

// Fetch selects the platform asset of a release and downloads it into
// targetDir. It returns the archive path and the chosen asset.
func (i *Installer) Fetch(ctx context.Context, kind ToolKind, release *Release, targetDir string, cfg DownloadConfig) (string, *Asset, error) {
	asset, err := SelectAssetFor(kind, release, cfg)
	if err != nil {
		return "", nil, err
	}

	i.logger.Info("downloading asset", "tool", kind.ProgramName(), "asset", asset.Name, "mirrors", cfg.UseMirrors)
	archivePath, err := i.downloader.Download(ctx, *asset, targetDir, cfg)
	if err != nil {
		return "", nil, err
	}
	return archivePath, asset, nil
}

// Install downloads, verifies, and extracts a release into req.TargetDir,
// overwriting files already present there.
func (i *Installer) Install(ctx context.Context, req InstallRequest) (*InstallResult, error) {
	startTime := time.Now()
	logger := i.logger
	if req.Logger != nil {
		logger = req.Logger
	}

	if req.Release == nil {
		return nil, fmt.Errorf("%w: release is required", ErrNotFound)
	}
	if req.TargetDir == "" {
		return nil, fmt.Errorf("%w: target directory is required", ErrIO)
	}

	// Create target directory
	if err := os.MkdirAll(req.TargetDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create target dir: %w", ErrIO, err)
	}

	archivePath, asset, err := i.Fetch(ctx, req.Kind, req.Release, req.TargetDir, req.Config)
	if err != nil {
		return nil, err
	}
	if !req.KeepArchive {
		defer os.Remove(archivePath)
	}

	results, err := i.verifier.Verify(ctx, archivePath, *asset, req.Verify, req.Config.UseMirrors)
	if err != nil {
		return nil, fmt.Errorf("verify %s: %w", asset.Name, err)
	}

	dir, err := i.extractor.Extract(archivePath, req.TargetDir)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", asset.Name, err)
	}

	methods := make([]VerificationMethod, 0, len(results))
	for _, r := range results {
		methods = append(methods, r.Method)
	}

	result := &InstallResult{
		Kind:        req.Kind,
		Version:     req.Release.Tag,
		Asset:       *asset,
		ArchivePath: archivePath,
		Dir:         dir,
		Verified:    methods,
		Duration:    time.Since(startTime),
	}
	logger.Info("install complete", "tool", req.Kind.ProgramName(), "version", result.Version, "dir", dir, "duration", result.Duration.String())
	return result, nil
}

// Extractor returns the installer's extractor
func (i *Installer) Extractor() *Extractor {
	return i.extractor
}
