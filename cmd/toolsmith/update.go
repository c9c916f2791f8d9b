package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newUpdateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "update <tool>",
		Short:     "Install the latest release into the managed directory",
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

			tag, err := a.engine.UpdateManaged(cmd.Context(), kind)
			if err != nil {
				return err
			}
			dir := a.engine.Locator().ManagedDir(kind)
			result := map[string]string{"tool": kind.ProgramName(), "version": tag, "dir": dir}
			return render(cmd, opts.output, result, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s %s in %s\n", okStyle.Render("Installed"), kind.ProgramName(), tag, dir)
			})
		},
	}
}

// updateStatus is the check-update result
type updateStatus struct {
	Tool            string `json:"tool" yaml:"tool"`
	Current         string `json:"current,omitempty" yaml:"current,omitempty"`
	UpdateAvailable bool   `json:"update_available" yaml:"update_available"`
}

func newCheckUpdateCmd(opts *options) *cobra.Command {
	var current string

	cmd := &cobra.Command{
		Use:       "check-update <tool>",
		Short:     "Report whether a newer release than the managed copy exists",
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

			available, err := a.engine.CheckUpdateAvailable(cmd.Context(), kind, current)
			if err != nil {
				return err
			}
			status := updateStatus{Tool: kind.ProgramName(), Current: current, UpdateAvailable: available}
			return render(cmd, opts.output, status, func(w io.Writer) {
				if available {
					fmt.Fprintf(w, "%s update available for %s\n", warnStyle.Render("!"), kind.ProgramName())
					return
				}
				fmt.Fprintf(w, "%s %s is up to date\n", okStyle.Render("✓"), kind.ProgramName())
			})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Version to compare (default: the managed copy's)")
	return cmd
}

func newInfoCmd(opts *options) *cobra.Command {
	var current string

	cmd := &cobra.Command{
		Use:       "info <tool>",
		Short:     "Show current, latest, and recent versions",
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

			info, err := a.engine.VersionInfo(cmd.Context(), kind, current)
			if err != nil {
				return err
			}
			return render(cmd, opts.output, info, func(w io.Writer) {
				fmt.Fprintln(w, titleStyle.Render(kind.ProgramName()))
				cur := info.Current
				if cur == "" {
					cur = faintStyle.Render("(unknown)")
				}
				field(w, "current", cur)
				field(w, "latest", info.Latest)
				field(w, "update", yesNo(info.IsUpdateAvailable))
				field(w, "recent", summarize(info.AvailableVersions, 10))
			})
		},
	}

	cmd.Flags().StringVar(&current, "current", "", "Installed version to compare against")
	return cmd
}
