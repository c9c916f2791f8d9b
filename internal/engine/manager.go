package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/locator"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
)

// ToolManager tracks one candidate source of a tool through validation.
// Managers are created per call and never cached.
type ToolManager struct {
	Kind      binary.ToolKind `json:"kind" yaml:"kind"`
	Source    Source          `json:"source" yaml:"source"`
	Info      *ToolInfo       `json:"info,omitempty" yaml:"info,omitempty"`
	Available bool            `json:"available" yaml:"available"`

	validated bool
	prober    *prober
}

// State returns the validation state
func (m *ToolManager) State() State {
	switch {
	case !m.validated:
		return StateUnvalidated
	case m.Available:
		return StateAvailable
	default:
		return StateUnavailable
	}
}

// ExecutablePath resolves the path the source points at. For the managed
// source this searches the managed directories.
func (m *ToolManager) ExecutablePath() (string, bool) {
	if m.Source.Kind == SourceManaged {
		return m.prober.locator.ManagedPath(m.Kind)
	}
	return m.Source.Path, m.Source.Path != ""
}

// Validate probes the source. On success Info is filled and Available is
// true; on any failure Info is nil and Available is false. The returned
// error explains the failure and may be ignored.
func (m *ToolManager) Validate(ctx context.Context) error {
	m.validated = true
	m.Info = nil
	m.Available = false

	path, ok := m.ExecutablePath()
	if !ok {
		return fmt.Errorf("%w: no %s executable for %s source", binary.ErrNotFound, m.Kind.ProgramName(), m.Source.Kind)
	}

	info, err := m.prober.probe(ctx, m.Kind, path)
	if err != nil {
		return err
	}
	m.Info = info
	m.Available = true
	return nil
}

// prober runs executables to collect ToolInfo
type prober struct {
	locator *locator.Locator
	logger  logx.Logger
}

func (p *prober) probe(ctx context.Context, kind binary.ToolKind, path string) (*ToolInfo, error) {
	if !locator.IsFile(path) {
		return nil, fmt.Errorf("%w: %s does not exist", binary.ErrNotFound, path)
	}

	runner := p.locator.Runner()
	result, err := runner.Run(ctx, path, "--version")
	if err != nil {
		return nil, err
	}
	if !result.Success() {
		return nil, fmt.Errorf("%w: %s --version exited with status %d: %s",
			binary.ErrExecutionFailed, path, result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	info := &ToolInfo{
		Version:   binary.VersionFromOutput(result.Stdout),
		Path:      path,
		IsWorking: true,
	}

	switch kind {
	case binary.Converter:
		info.InputFormats = p.listFormats(ctx, path, "--list-input-formats", FallbackInputFormats)
		info.OutputFormats = p.listFormats(ctx, path, "--list-output-formats", FallbackOutputFormats)
	default:
		info.InputFormats = slices.Clone(TypesetterInputFormats)
		info.OutputFormats = slices.Clone(TypesetterOutputFormats)
	}

	p.logger.Debug("tool validated", "tool", kind.ProgramName(), "path", path, "version", info.Version)
	return info, nil
}

// listFormats asks the converter for one format per line. A failed run or
// empty output yields a copy of fallback.
func (p *prober) listFormats(ctx context.Context, path, flag string, fallback []string) []string {
	result, err := p.locator.Runner().Run(ctx, path, flag)
	if err != nil || !result.Success() {
		p.logger.Debug("format listing failed, using built-in table", "path", path, "flag", flag)
		return slices.Clone(fallback)
	}

	var formats []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if f := strings.TrimSpace(line); f != "" {
			formats = append(formats, f)
		}
	}
	if len(formats) == 0 {
		return slices.Clone(fallback)
	}
	return formats
}
