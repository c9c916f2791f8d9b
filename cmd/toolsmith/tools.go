package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/engine"
)

func newResolveCmd(opts *options) *cobra.Command {
	var custom string

	cmd := &cobra.Command{
		Use:       "resolve <tool>",
		Short:     "Find the highest priority working executable",
		Long:      "Resolve tries the custom path, then the managed copy, then every system location, and reports the first executable that runs.",
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

			customPath := custom
			if customPath == "" {
				customPath = a.cfg.Tool(kind).CustomPath
			}

			info, err := a.engine.Resolve(cmd.Context(), kind, customPath)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, info, func(w io.Writer) {
				printToolInfo(w, kind, info)
			})
		},
	}

	cmd.Flags().StringVar(&custom, "custom", "", "Explicit executable path tried before all other sources")
	return cmd
}

func newDiscoverCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "discover <tool>",
		Short:     "Validate the managed copy and every installed executable",
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

			managers := a.engine.Discover(cmd.Context(), kind)
			return render(cmd, opts.output, managers, func(w io.Writer) {
				printManagers(w, kind, managers)
			})
		},
	}
}

func newBestCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "best <tool>",
		Short:     "Show the highest priority available source",
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

			best := a.engine.Best(cmd.Context(), kind)
			if best == nil {
				return fmt.Errorf("%w: no available %s source", binary.ErrNotFound, kind.ProgramName())
			}
			return render(cmd, opts.output, best, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s\n", titleStyle.Render(kind.ProgramName()), best.Source.Kind)
				printToolInfo(w, kind, best.Info)
			})
		},
	}
}

func printToolInfo(w io.Writer, kind binary.ToolKind, info *engine.ToolInfo) {
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render(kind.ProgramName()), info.Version)
	field(w, "path", info.Path)
	field(w, "working", yesNo(info.IsWorking))
	field(w, "input formats", summarize(info.InputFormats, 8))
	field(w, "output formats", summarize(info.OutputFormats, 8))
	field(w, "detected", summarize(info.DetectedPaths, 4))
}

func printManagers(w io.Writer, kind binary.ToolKind, managers []*engine.ToolManager) {
	fmt.Fprintf(w, "%s sources (highest priority first)\n", titleStyle.Render(kind.ProgramName()))
	fmt.Fprintf(w, "  %-8s %-12s %-10s %s\n", "SOURCE", "STATE", "VERSION", "PATH")
	for _, m := range managers {
		state := m.State().String()
		styled := errStyle.Render(state)
		version, path := "-", m.Source.Path
		if m.Available {
			styled = okStyle.Render(state)
			version, path = m.Info.Version, m.Info.Path
		}
		if path == "" {
			path = faintStyle.Render("(not installed)")
		}
		// Pad before styling so escape codes do not skew the columns
		pad := 12 - len(state)
		if pad < 1 {
			pad = 1
		}
		fmt.Fprintf(w, "  %-8s %s%*s %-10s %s\n", m.Source.Kind, styled, pad, "", version, path)
	}
}
