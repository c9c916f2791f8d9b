package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/engine"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/locator"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/registry"
)

// Config represents the complete toolsmith configuration.
type Config struct {
	Registry RegistryConfig
	Network  NetworkConfig
	Probe    ProbeConfig
	Paths    PathsConfig
	// Tools holds per-tool settings. Kinds without an entry use zero values.
	Tools map[binary.ToolKind]ToolConfig
}

// RegistryConfig configures the release metadata API.
type RegistryConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NetworkConfig configures archive downloads.
type NetworkConfig struct {
	UseMirrors bool
	// Mirrors are URL prefixes tried in order; "" is the origin
	Mirrors         []string
	DownloadTimeout time.Duration
	UserAgent       string
}

// ProbeConfig bounds executable validation.
type ProbeConfig struct {
	Timeout     time.Duration
	Concurrency int
}

// PathsConfig holds the managed install roots.
type PathsConfig struct {
	ResourceDir string
	DataDir     string
}

// ToolConfig holds the settings of one tool.
type ToolConfig struct {
	CustomPath      string
	ExtraSearchDirs []string
	Verify          VerifyConfig
}

// VerifyConfig configures archive verification for one tool.
type VerifyConfig struct {
	SHA256          string
	MinisignKey     string
	PGPKeyring      string
	SignatureSuffix string
}

// Options converts the settings to verifier options
func (v VerifyConfig) Options() binary.VerifyOptions {
	return binary.VerifyOptions{
		SHA256:          v.SHA256,
		MinisignKey:     v.MinisignKey,
		PGPKeyring:      v.PGPKeyring,
		SignatureSuffix: v.SignatureSuffix,
	}
}

// Default returns the built-in configuration. Paths are left empty and
// filled by ApplyEnvironment.
func Default() *Config {
	return &Config{
		Registry: RegistryConfig{
			BaseURL: registry.DefaultBaseURL,
			Timeout: registry.DefaultTimeout,
		},
		Network: NetworkConfig{
			UseMirrors:      true,
			Mirrors:         slices.Clone([]string(binary.DefaultMirrors)),
			DownloadTimeout: binary.DefaultTimeout,
			UserAgent:       binary.DefaultUserAgent,
		},
		Probe: ProbeConfig{
			Timeout:     locator.DefaultProbeTimeout,
			Concurrency: engine.DefaultConcurrency,
		},
		Tools: map[binary.ToolKind]ToolConfig{
			binary.Converter:  {Verify: VerifyConfig{SignatureSuffix: binary.DefaultSignatureSuffix}},
			binary.Typesetter: {Verify: VerifyConfig{SignatureSuffix: binary.DefaultSignatureSuffix}},
		},
	}
}

// Tool returns the settings of kind
func (c *Config) Tool(kind binary.ToolKind) ToolConfig {
	return c.Tools[kind]
}

// VerifyOptions returns verifier options for every configured tool
func (c *Config) VerifyOptions() map[binary.ToolKind]binary.VerifyOptions {
	opts := make(map[binary.ToolKind]binary.VerifyOptions, len(c.Tools))
	for kind, tool := range c.Tools {
		opts[kind] = tool.Verify.Options()
	}
	return opts
}

// ExtraDirs returns the extra search directories per tool
func (c *Config) ExtraDirs() map[binary.ToolKind][]string {
	dirs := make(map[binary.ToolKind][]string, len(c.Tools))
	for kind, tool := range c.Tools {
		if len(tool.ExtraSearchDirs) > 0 {
			dirs[kind] = slices.Clone(tool.ExtraSearchDirs)
		}
	}
	return dirs
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if err := validateHTTPURL(c.Registry.BaseURL); err != nil {
		return &ValidationError{Field: "registry.base_url", Message: err.Error()}
	}

	timeouts := []struct {
		field string
		value time.Duration
	}{
		{"registry.timeout", c.Registry.Timeout},
		{"network.download_timeout", c.Network.DownloadTimeout},
		{"probe.timeout", c.Probe.Timeout},
	}
	for _, t := range timeouts {
		if t.value <= 0 {
			return &ValidationError{Field: t.field, Message: fmt.Sprintf("must be positive (got %s)", t.value)}
		}
	}

	if c.Probe.Concurrency < 1 || c.Probe.Concurrency > MaxConcurrency {
		return &ValidationError{
			Field:   "probe.concurrency",
			Message: fmt.Sprintf("must be between 1 and %d (got %d)", MaxConcurrency, c.Probe.Concurrency),
		}
	}

	for i, mirror := range c.Network.Mirrors {
		if err := validateMirror(mirror); err != nil {
			return &ValidationError{Field: fmt.Sprintf("network.mirrors[%d]", i), Message: err.Error()}
		}
	}

	if strings.TrimSpace(c.Network.UserAgent) == "" {
		return &ValidationError{Field: "network.user_agent", Message: "cannot be empty"}
	}

	for kind, tool := range c.Tools {
		if err := validateVerify(tool.Verify); err != nil {
			return &ValidationError{Field: fmt.Sprintf("tools.%s.verify", kind), Message: err.Error()}
		}
		for i, dir := range tool.ExtraSearchDirs {
			if strings.TrimSpace(dir) == "" {
				return &ValidationError{
					Field:   fmt.Sprintf("tools.%s.extra_search_dirs[%d]", kind, i),
					Message: "directory cannot be empty",
				}
			}
		}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("URL must use https:// or http:// scheme (got: %q)", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL has no host: %q", raw)
	}
	return nil
}

// validateMirror accepts "" (origin) or an http(s) prefix ending in "/"
func validateMirror(prefix string) error {
	if prefix == "" {
		return nil
	}
	if err := validateHTTPURL(prefix); err != nil {
		return err
	}
	if !strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("mirror prefix must end with /: %q", prefix)
	}
	return nil
}

func validateVerify(v VerifyConfig) error {
	if v.SHA256 != "" {
		if len(v.SHA256) != 64 || strings.Trim(strings.ToLower(v.SHA256), "0123456789abcdef") != "" {
			return fmt.Errorf("sha256 must be 64 hex characters")
		}
	}
	if v.SignatureSuffix != "" && !strings.HasPrefix(v.SignatureSuffix, ".") {
		return fmt.Errorf("signature_suffix must start with a dot (got %q)", v.SignatureSuffix)
	}
	return nil
}
