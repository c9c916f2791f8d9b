// Package registry fetches release metadata for the managed tools from an
// UNGH-compatible JSON API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/git"
	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
)

const (
	// DefaultBaseURL is the UNGH repository API
	DefaultBaseURL = "https://ungh.cc/repos"
	// DefaultTimeout bounds one API request
	DefaultTimeout = 30 * time.Second
	// maxBodySize caps how much of a response body is read
	maxBodySize = 8 << 20
)

// Client talks to the release registry
type Client struct {
	baseURL   string
	client    *http.Client
	userAgent string
	logger    logx.Logger
	tags      git.TagLister
	schemas   *responseSchemas
}

// Config holds configuration for a Client
type Config struct {
	// BaseURL overrides DefaultBaseURL
	BaseURL string
	// Timeout bounds one request (default: DefaultTimeout)
	Timeout time.Duration
	// UserAgent overrides binary.DefaultUserAgent
	UserAgent string
	// Logger defaults to a no-op logger
	Logger logx.Logger
	// HTTPClient replaces the HTTP client entirely (Timeout is then ignored)
	HTTPClient *http.Client
	// Tags lists git tags for Tags (default: git.NewClient(nil))
	Tags git.TagLister
}

// New creates a registry client
func New(cfg Config) (*Client, error) {
	schemas, err := loadSchemas()
	if err != nil {
		return nil, err
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = binary.DefaultUserAgent
	}

	tags := cfg.Tags
	if tags == nil {
		tags = git.NewClient(nil)
	}

	return &Client{
		baseURL:   baseURL,
		client:    client,
		userAgent: userAgent,
		logger:    logx.OrNop(cfg.Logger),
		tags:      tags,
		schemas:   schemas,
	}, nil
}

// wireAsset accepts both the GitHub asset shape and UNGH's camelCase one
type wireAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	DownloadURL        string `json:"downloadUrl"`
	Size               uint64 `json:"size"`
	ContentType        string `json:"content_type"`
	ContentTypeCamel   string `json:"contentType"`
}

type wireRelease struct {
	Tag         string      `json:"tag"`
	Name        *string     `json:"name"`
	Markdown    *string     `json:"markdown"`
	PublishedAt *string     `json:"publishedAt"`
	Assets      []wireAsset `json:"assets"`
}

type latestResponse struct {
	Release wireRelease `json:"release"`
}

type releasesResponse struct {
	Releases []wireRelease `json:"releases"`
}

// LatestRelease fetches the newest release of repo ("owner/name")
func (c *Client) LatestRelease(ctx context.Context, repo string) (*binary.Release, error) {
	body, err := c.get(ctx, c.baseURL+"/"+strings.Trim(repo, "/")+"/releases/latest")
	if err != nil {
		return nil, err
	}
	if err := validate(c.schemas.latest, body); err != nil {
		return nil, err
	}

	var resp latestResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode latest release: %w", binary.ErrParse, err)
	}
	if resp.Release.Tag == "" {
		return nil, fmt.Errorf("%w: latest release of %s has no tag", binary.ErrParse, repo)
	}

	release := convertRelease(repo, resp.Release)
	c.logger.Debug("latest release", "repo", repo, "tag", release.Tag, "assets", len(release.Assets))
	return &release, nil
}

// Releases fetches the releases of repo, newest first as the API returns
// them. A positive limit truncates the list.
func (c *Client) Releases(ctx context.Context, repo string, limit int) ([]binary.Release, error) {
	body, err := c.get(ctx, c.baseURL+"/"+strings.Trim(repo, "/")+"/releases")
	if err != nil {
		return nil, err
	}
	if err := validate(c.schemas.releases, body); err != nil {
		return nil, err
	}

	var resp releasesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode releases: %w", binary.ErrParse, err)
	}

	releases := make([]binary.Release, 0, len(resp.Releases))
	for _, wr := range resp.Releases {
		if wr.Tag == "" {
			c.logger.Debug("skipping release without tag", "repo", repo)
			continue
		}
		releases = append(releases, convertRelease(repo, wr))
		if limit > 0 && len(releases) == limit {
			break
		}
	}

	c.logger.Debug("releases", "repo", repo, "count", len(releases))
	return releases, nil
}

// Tags lists the git tags of repo with ls-remote, newest version first.
// It works when the JSON API is unavailable.
func (c *Client) Tags(ctx context.Context, repo string) ([]string, error) {
	tags, err := c.tags.Tags(ctx, git.RepoURL(repo))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", binary.ErrNetwork, err)
	}
	return tags, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", binary.ErrNetwork, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("registry request", "url", url)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", binary.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &binary.HTTPStatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", binary.ErrNetwork, err)
	}
	if len(body) > maxBodySize {
		return nil, fmt.Errorf("%w: response from %s exceeds %d bytes", binary.ErrParse, url, maxBodySize)
	}
	return body, nil
}

func convertRelease(repo string, wr wireRelease) binary.Release {
	release := binary.Release{
		Tag:         wr.Tag,
		DisplayName: wr.Tag,
	}
	if wr.Name != nil && *wr.Name != "" {
		release.DisplayName = *wr.Name
	}
	if wr.Markdown != nil {
		release.Notes = *wr.Markdown
	}
	if wr.PublishedAt != nil {
		if t, err := time.Parse(time.RFC3339, *wr.PublishedAt); err == nil {
			release.PublishedAt = t
		}
	}

	release.Assets = convertAssets(wr.Assets)
	if len(release.Assets) == 0 {
		if kind, ok := binary.KindForRepo(repo); ok {
			release.Assets = binary.SynthesizeAssets(kind, wr.Tag)
		}
	}
	return release
}

// convertAssets keeps assets with a download URL. A missing name is taken
// from the last URL path segment.
func convertAssets(in []wireAsset) []binary.Asset {
	var assets []binary.Asset
	seen := make(map[string]bool)
	for _, wa := range in {
		url := wa.BrowserDownloadURL
		if url == "" {
			url = wa.DownloadURL
		}
		if url == "" {
			continue
		}

		name := wa.Name
		if name == "" {
			name = path.Base(strings.SplitN(url, "?", 2)[0])
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		contentType := wa.ContentType
		if contentType == "" {
			contentType = wa.ContentTypeCamel
		}

		assets = append(assets, binary.Asset{
			Name:        name,
			DownloadURL: url,
			Size:        wa.Size,
			ContentType: contentType,
		})
	}
	return assets
}
