package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

func newLatestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "latest <tool>",
		Short:     "Show the newest upstream release",
		Args:      cobra.ExactArgs(1),
		ValidArgs: toolValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := toolArg(args)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts, target{})
			if err != nil {
				return err
			}

			release, err := a.engine.LatestRelease(cmd.Context(), kind)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, release, func(w io.Writer) {
				printRelease(w, release, true)
			})
		},
	}
}

func newReleasesCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:       "releases <tool>",
		Short:     "List upstream releases, newest first",
		Args:      cobra.ExactArgs(1),
		ValidArgs: toolValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := toolArg(args)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts, target{})
			if err != nil {
				return err
			}

			releases, err := a.engine.Releases(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, releases, func(w io.Writer) {
				if len(releases) == 0 {
					fmt.Fprintln(w, "No releases found.")
					return
				}
				for i := range releases {
					printRelease(w, &releases[i], false)
				}
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of releases (0 for all)")
	return cmd
}

func newVersionsCmd(opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:       "versions <tool>",
		Short:     "List release tags from the upstream git repository",
		Args:      cobra.ExactArgs(1),
		ValidArgs: toolValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := toolArg(args)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts, target{})
			if err != nil {
				return err
			}

			tags, err := a.engine.Tags(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if limit > 0 && len(tags) > limit {
				tags = tags[:limit]
			}
			return render(cmd, opts.output, tags, func(w io.Writer) {
				for _, tag := range tags {
					fmt.Fprintln(w, tag)
				}
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of tags (0 for all)")
	return cmd
}

func newDownloadCmd(opts *options) *cobra.Command {
	var (
		version string
		dir     string
		tgt     target
	)

	cmd := &cobra.Command{
		Use:       "download <tool>",
		Short:     "Download the release archive for a platform",
		Args:      cobra.ExactArgs(1),
		ValidArgs: toolValidArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := toolArg(args)
			if err != nil {
				return err
			}
			a, err := newApp(cmd, opts, tgt)
			if err != nil {
				return err
			}
			if opts.output == formatText && !opts.verbose {
				a.downloader.OnProgress(progressPrinter(cmd.ErrOrStderr()))
			}

			path, err := a.engine.Download(cmd.Context(), kind, version, dir)
			if err != nil {
				return err
			}
			result := map[string]string{"tool": kind.ProgramName(), "platform": a.platform.OS + "/" + a.platform.Arch, "path": path}
			return render(cmd, opts.output, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", okStyle.Render("Downloaded"), path)
			})
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "Release tag (default: latest)")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the archive into")
	cmd.Flags().StringVar(&tgt.os, "os", "", "Target OS (default: host)")
	cmd.Flags().StringVar(&tgt.arch, "arch", "", "Target architecture (default: host)")
	return cmd
}

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <archive> <dir>",
		Short: "Unpack a zip, tar.gz, or tar.xz archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			archive, dir := args[0], args[1]
			if _, err := os.Stat(archive); err != nil {
				return fmt.Errorf("%w: %w", binary.ErrIO, err)
			}

			// Extraction needs no config, registry, or platform
			extractor := binary.NewExtractor(nil)
			out, err := extractor.Extract(archive, dir)
			if err != nil {
				return err
			}
			abs, err := filepath.Abs(out)
			if err != nil {
				abs = out
			}

			result := map[string]string{"archive": archive, "dir": abs}
			return render(cmd, opts.output, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s into %s\n", okStyle.Render("Extracted"), filepath.Base(archive), abs)
			})
		},
	}
}

func printRelease(w io.Writer, release *binary.Release, withAssets bool) {
	published := "-"
	if !release.PublishedAt.IsZero() {
		published = release.PublishedAt.Format("2006-01-02")
	}
	fmt.Fprintf(w, "%s  %s  %s\n", titleStyle.Render(release.Tag), published, faintStyle.Render(release.DisplayName))
	if !withAssets {
		return
	}
	for _, asset := range release.Assets {
		size := "-"
		if asset.Size > 0 {
			size = humanSize(asset.Size)
		}
		fmt.Fprintf(w, "  %-48s %10s\n", asset.Name, size)
	}
}

// progressPrinter reports every further 10 percent on w
func progressPrinter(w io.Writer) func(binary.Progress) {
	next := 10.0
	return func(p binary.Progress) {
		if p.Total == 0 || p.Percentage < next {
			return
		}
		for next <= p.Percentage {
			next += 10
		}
		fmt.Fprintf(w, "\r%s %3.0f%% (%s / %s)", faintStyle.Render("downloading"), p.Percentage, humanSize(p.Downloaded), humanSize(p.Total))
		if p.Downloaded >= p.Total {
			fmt.Fprintln(w)
		}
	}
}

func humanSize(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
