package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/binary"
)

const unghLatest = `{
  "release": {
    "id": 123,
    "tag": "3.6.4",
    "author": "jgm",
    "name": "pandoc 3.6.4",
    "draft": false,
    "prerelease": false,
    "createdAt": "2025-03-08T17:00:00Z",
    "publishedAt": "2025-03-08T18:30:00Z",
    "markdown": "Release notes",
    "html": "<p>Release notes</p>"
  }
}`

// newTestClient returns a client pointed at a server replying with body
func newTestClient(t *testing.T, status int, body string) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := New(Config{BaseURL: server.URL + "/repos/"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, server
}

func TestLatestRelease(t *testing.T) {
	var gotPath, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(unghLatest))
	}))
	defer server.Close()

	client, err := New(Config{BaseURL: server.URL + "/repos", UserAgent: "toolsmith-test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	release, err := client.LatestRelease(context.Background(), "jgm/pandoc")
	if err != nil {
		t.Fatalf("LatestRelease() error = %v", err)
	}

	if gotPath != "/repos/jgm/pandoc/releases/latest" {
		t.Errorf("path = %s", gotPath)
	}
	if gotUA != "toolsmith-test" {
		t.Errorf("User-Agent = %s", gotUA)
	}
	if release.Tag != "3.6.4" || release.DisplayName != "pandoc 3.6.4" || release.Notes != "Release notes" {
		t.Errorf("release = %+v", release)
	}
	want := time.Date(2025, 3, 8, 18, 30, 0, 0, time.UTC)
	if !release.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", release.PublishedAt, want)
	}

	// Assets are synthesized from the pandoc download template
	if len(release.Assets) != 9 {
		t.Fatalf("expected 9 synthesized assets, got %d", len(release.Assets))
	}
	for _, a := range release.Assets {
		if !strings.HasPrefix(a.DownloadURL, "https://github.com/jgm/pandoc/releases/download/3.6.4/") {
			t.Errorf("unexpected download URL %s", a.DownloadURL)
		}
		if a.Size != 0 {
			t.Errorf("synthesized asset %s has size %d", a.Name, a.Size)
		}
	}
}

func TestLatestReleaseDefaults(t *testing.T) {
	client, _ := newTestClient(t, http.StatusOK, `{"release": {"tag": "v0.13.1", "name": "", "publishedAt": "yesterday"}}`)

	release, err := client.LatestRelease(context.Background(), "typst/typst")
	if err != nil {
		t.Fatalf("LatestRelease() error = %v", err)
	}
	if release.DisplayName != "v0.13.1" {
		t.Errorf("DisplayName = %q, want tag", release.DisplayName)
	}
	if !release.PublishedAt.IsZero() {
		t.Errorf("PublishedAt = %v, want zero", release.PublishedAt)
	}
	if len(release.Assets) != 7 || !strings.HasPrefix(release.Assets[0].Name, "typst-") {
		t.Errorf("expected 7 typst assets, got %v", release.Assets)
	}
}

func TestLatestReleaseWithAssets(t *testing.T) {
	body := `{"release": {"tag": "v0.13.1", "assets": [
	  {"name": "typst-x86_64-unknown-linux-musl.tar.xz", "browser_download_url": "https://example.com/a.tar.xz", "size": 42, "content_type": "application/x-xz"},
	  {"downloadUrl": "https://example.com/dl/typst-aarch64-apple-darwin.tar.xz?raw=1", "size": 7, "contentType": "application/x-xz"},
	  {"name": "no-url"}
	]}}`
	client, _ := newTestClient(t, http.StatusOK, body)

	release, err := client.LatestRelease(context.Background(), "typst/typst")
	if err != nil {
		t.Fatalf("LatestRelease() error = %v", err)
	}

	want := []binary.Asset{
		{Name: "typst-x86_64-unknown-linux-musl.tar.xz", DownloadURL: "https://example.com/a.tar.xz", Size: 42, ContentType: "application/x-xz"},
		{Name: "typst-aarch64-apple-darwin.tar.xz", DownloadURL: "https://example.com/dl/typst-aarch64-apple-darwin.tar.xz?raw=1", Size: 7, ContentType: "application/x-xz"},
	}
	if !reflect.DeepEqual(release.Assets, want) {
		t.Errorf("Assets = %+v, want %+v", release.Assets, want)
	}
}

func TestReleases(t *testing.T) {
	body := `{"releases": [
	  {"tag": "3.6.4", "name": "pandoc 3.6.4"},
	  {"name": "draft without tag"},
	  {"tag": "3.6.3"},
	  {"tag": "3.6.2"}
	]}`

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "unlimited", limit: 0, want: []string{"3.6.4", "3.6.3", "3.6.2"}},
		{name: "truncated", limit: 2, want: []string{"3.6.4", "3.6.3"}},
		{name: "limit_above_count", limit: 50, want: []string{"3.6.4", "3.6.3", "3.6.2"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.StatusOK, body)
			releases, err := client.Releases(context.Background(), "jgm/pandoc", tt.limit)
			if err != nil {
				t.Fatalf("Releases() error = %v", err)
			}

			var tags []string
			for _, r := range releases {
				tags = append(tags, r.Tag)
				if len(r.Assets) == 0 {
					t.Errorf("release %s has no assets", r.Tag)
				}
			}
			if !reflect.DeepEqual(tags, tt.want) {
				t.Errorf("tags = %v, want %v", tags, tt.want)
			}
		})
	}
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		latest  bool
		wantErr error
	}{
		{name: "not_found", status: http.StatusNotFound, body: `{}`, latest: true, wantErr: binary.ErrHTTPStatus},
		{name: "server_error", status: http.StatusInternalServerError, body: ``, wantErr: binary.ErrHTTPStatus},
		{name: "invalid_json", status: http.StatusOK, body: `{not json`, latest: true, wantErr: binary.ErrParse},
		{name: "missing_envelope", status: http.StatusOK, body: `{"tag": "3.6"}`, latest: true, wantErr: binary.ErrParse},
		{name: "missing_tag", status: http.StatusOK, body: `{"release": {"name": "x"}}`, latest: true, wantErr: binary.ErrParse},
		{name: "wrong_type", status: http.StatusOK, body: `{"releases": {"tag": "3.6"}}`, wantErr: binary.ErrParse},
		{name: "negative_size", status: http.StatusOK, body: `{"releases": [{"tag": "1", "assets": [{"size": -1}]}]}`, wantErr: binary.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, tt.status, tt.body)

			var err error
			if tt.latest {
				_, err = client.LatestRelease(context.Background(), "jgm/pandoc")
			} else {
				_, err = client.Releases(context.Background(), "jgm/pandoc", 0)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistryHTTPStatusError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusForbidden, `rate limited`)

	_, err := client.LatestRelease(context.Background(), "jgm/pandoc")
	var statusErr *binary.HTTPStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *HTTPStatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d", statusErr.StatusCode)
	}
}

func TestRegistryNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client, err := New(Config{BaseURL: url})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := client.LatestRelease(context.Background(), "jgm/pandoc"); !errors.Is(err, binary.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}

func TestRegistryBodyLimit(t *testing.T) {
	huge := `{"releases": [], "padding": "` + strings.Repeat("x", maxBodySize) + `"}`
	client, _ := newTestClient(t, http.StatusOK, huge)

	if _, err := client.Releases(context.Background(), "jgm/pandoc", 0); !errors.Is(err, binary.ErrParse) {
		t.Errorf("expected ErrParse for oversized body, got %v", err)
	}
}

type fakeTags struct {
	url  string
	tags []string
	err  error
}

func (f *fakeTags) Tags(ctx context.Context, repoURL string) ([]string, error) {
	f.url = repoURL
	return f.tags, f.err
}

func TestTags(t *testing.T) {
	lister := &fakeTags{tags: []string{"v0.13.1", "v0.13.0"}}
	client, err := New(Config{Tags: lister})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tags, err := client.Tags(context.Background(), "typst/typst")
	if err != nil {
		t.Fatalf("Tags() error = %v", err)
	}
	if lister.url != "https://github.com/typst/typst.git" {
		t.Errorf("url = %s", lister.url)
	}
	if !reflect.DeepEqual(tags, lister.tags) {
		t.Errorf("tags = %v", tags)
	}

	lister.err = errors.New("connection refused")
	if _, err := client.Tags(context.Background(), "typst/typst"); !errors.Is(err, binary.ErrNetwork) {
		t.Errorf("expected ErrNetwork, got %v", err)
	}
}
