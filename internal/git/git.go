// Package git lists release tags of remote repositories with go-git,
// without a git binary and without touching the local disk.
package git

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

// Common Git errors
var (
	ErrEmptyURL   = errors.New("repository URL cannot be empty")
	ErrListFailed = errors.New("git ls-remote failed")
)

// TagLister is the interface for listing tags of a remote repository.
type TagLister interface {
	Tags(ctx context.Context, repoURL string) ([]string, error)
}

// Client implements TagLister using an in-memory remote.
type Client struct {
	auth transport.AuthMethod
}

// NewClient creates a new Git client. auth may be nil for public repositories.
func NewClient(auth transport.AuthMethod) *Client {
	return &Client{auth: auth}
}

// RepoURL returns the https clone URL of an "owner/name" repository.
func RepoURL(repo string) string {
	if strings.Contains(repo, "://") || filepath.IsAbs(repo) {
		return repo
	}
	repo = strings.Trim(repo, "/")
	return "https://github.com/" + repo + ".git"
}

// Tags returns the tag names advertised by the remote, newest version first.
// It is the equivalent of `git ls-remote --tags`.
func (c *Client) Tags(ctx context.Context, repoURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if strings.TrimSpace(repoURL) == "" {
		return nil, ErrEmptyURL
	}

	remote := gogit.NewRemote(memory.NewStorage(), &config.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})

	refs, err := remote.ListContext(ctx, &gogit.ListOptions{Auth: c.auth})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrListFailed, repoURL, err)
	}

	seen := make(map[string]bool)
	var tags []string
	for _, ref := range refs {
		if !ref.Name().IsTag() {
			continue
		}
		// Annotated tags are advertised twice, once peeled with a ^{} suffix
		name := strings.TrimSuffix(ref.Name().Short(), "^{}")
		if seen[name] {
			continue
		}
		seen[name] = true
		tags = append(tags, name)
	}

	SortTags(tags)
	return tags, nil
}

// SortTags orders tags newest first by their dotted numeric components.
// Tags without a numeric version sort after all versioned tags.
func SortTags(tags []string) {
	sort.SliceStable(tags, func(i, j int) bool {
		return binary.CompareVersions(tags[i], tags[j]) > 0
	})
}
