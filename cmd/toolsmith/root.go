package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/config"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/engine"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/locator"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/platform"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/registry"
)

// options holds the global flags
type options struct {
	configPath string
	output     string
	verbose    bool
	noMirrors  bool
}

func newRootCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "toolsmith",
		Short:         "Locate, validate, and provision pandoc and typst",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return validateOutput(opts.output)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to toolsmith.lua (default: $TOOLSMITH_CONFIG or the user config dir)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", formatText, "Output format: text, json, or yaml")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging on stderr")
	cmd.PersistentFlags().BoolVar(&opts.noMirrors, "no-mirrors", false, "Download from the origin only")

	cmd.AddCommand(newResolveCmd(opts))
	cmd.AddCommand(newDiscoverCmd(opts))
	cmd.AddCommand(newBestCmd(opts))
	cmd.AddCommand(newLatestCmd(opts))
	cmd.AddCommand(newReleasesCmd(opts))
	cmd.AddCommand(newVersionsCmd(opts))
	cmd.AddCommand(newDownloadCmd(opts))
	cmd.AddCommand(newExtractCmd(opts))
	cmd.AddCommand(newUpdateCmd(opts))
	cmd.AddCommand(newCheckUpdateCmd(opts))
	cmd.AddCommand(newInfoCmd(opts))
	cmd.AddCommand(newConfigCmd(opts))

	return cmd
}

// app is everything a command needs, built from flags and config
type app struct {
	opts       *options
	cfg        *config.Loaded
	platform   *platform.Info
	logger     *slog.Logger
	downloader *binary.Downloader
	engine     *engine.Engine
}

// target overrides the download platform; empty fields keep the host's
type target struct {
	os   string
	arch string
}

func newApp(cmd *cobra.Command, opts *options, tgt target) (*app, error) {
	ctx := cmd.Context()
	logger := logx.New(cmd.ErrOrStderr(), opts.verbose)

	host, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}

	cfg, err := config.Load(ctx, config.LoadOptions{
		Path:     opts.configPath,
		Detector: platform.StaticDetector{Info: host},
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	reg, err := registry.New(registry.Config{
		BaseURL:   cfg.Registry.BaseURL,
		Timeout:   cfg.Registry.Timeout,
		UserAgent: cfg.Network.UserAgent,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	loc := locator.New(locator.Config{
		Env:         locator.EnvFromOS(host),
		Runner:      locator.ExecRunner{Timeout: cfg.Probe.Timeout},
		ResourceDir: cfg.Paths.ResourceDir,
		DataDir:     cfg.Paths.DataDir,
		ExtraDirs:   cfg.ExtraDirs(),
		Logger:      logger,
	})

	downloader := binary.NewDownloader(binary.DownloaderConfig{
		Timeout:   cfg.Network.DownloadTimeout,
		UserAgent: cfg.Network.UserAgent,
		Mirrors:   binary.MirrorList(cfg.Network.Mirrors),
		Logger:    logger,
	})

	dest := host.WithTarget(tgt.os, tgt.arch)
	eng, err := engine.New(engine.Config{
		Registry:    reg,
		Locator:     loc,
		Downloader:  downloader,
		Platform:    dest,
		UseMirrors:  cfg.Network.UseMirrors && !opts.noMirrors,
		Verify:      cfg.VerifyOptions(),
		Concurrency: cfg.Probe.Concurrency,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("toolsmith ready", "platform", host.String(), "target", dest.String(), "config", cfg.Path)
	return &app{
		opts:       opts,
		cfg:        cfg,
		platform:   dest,
		logger:     logger,
		downloader: downloader,
		engine:     eng,
	}, nil
}

// toolArg parses the single <tool> argument
func toolArg(args []string) (binary.ToolKind, error) {
	return binary.ParseToolKind(args[0])
}

// toolValidArgs feeds shell completion
var toolValidArgs = []string{"pandoc", "typst", "converter", "typesetter"}
