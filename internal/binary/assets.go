package binary

import (
	"fmt"
	"path"
	"strings"
)

// Content types attached to synthesized assets
const (
	contentTypeZip  = "application/zip"
	contentTypeGzip = "application/gzip"
	contentTypeXz   = "application/x-xz"
	contentTypeMSI  = "application/x-msi"
	contentTypePkg  = "application/x-newton-compatible-pkg"
)

// releaseDownloadBase builds the upstream download directory for a tag
// Pattern: https://github.com/{repo}/releases/download/{tag}
func releaseDownloadBase(repo, tag string) string {
	return fmt.Sprintf("https://github.com/%s/releases/download/%s", repo, tag)
}

// SynthesizeAssets builds the asset list of a release from the upstream
// download URL template. It is used when the registry API omits assets.
// Sizes are zero because nothing has been downloaded yet.
func SynthesizeAssets(kind ToolKind, tag string) []Asset {
	if tag == "" {
		return nil
	}
	switch kind {
	case Converter:
		return converterAssets(tag)
	case Typesetter:
		return typesetterAssets(tag)
	default:
		return nil
	}
}

// KindForRepo maps an upstream repository to its tool kind
func KindForRepo(repo string) (ToolKind, bool) {
	repo = strings.Trim(strings.ToLower(repo), "/")
	for _, k := range AllKinds {
		if k.Repo() == repo {
			return k, true
		}
	}
	return "", false
}

func converterAssets(tag string) []Asset {
	base := releaseDownloadBase(Converter.Repo(), tag)
	variants := []struct {
		suffix      string
		contentType string
	}{
		{"windows-x86_64.msi", contentTypeMSI},
		{"windows-x86_64.zip", contentTypeZip},
		{"arm64-macOS.pkg", contentTypePkg},
		{"arm64-macOS.zip", contentTypeZip},
		{"x86_64-macOS.pkg", contentTypePkg},
		{"x86_64-macOS.zip", contentTypeZip},
		{"linux-amd64.tar.gz", contentTypeGzip},
		{"linux-arm64.tar.gz", contentTypeGzip},
	}

	assets := make([]Asset, 0, len(variants)+1)
	for _, v := range variants {
		name := fmt.Sprintf("pandoc-%s-%s", tag, v.suffix)
		assets = append(assets, Asset{
			Name:        name,
			DownloadURL: base + "/" + name,
			ContentType: v.contentType,
		})
	}

	// Source tarball
	source := fmt.Sprintf("pandoc-%s.tar.gz", tag)
	assets = append(assets, Asset{
		Name:        source,
		DownloadURL: base + "/" + source,
		ContentType: contentTypeGzip,
	})
	return assets
}

func typesetterAssets(tag string) []Asset {
	base := releaseDownloadBase(Typesetter.Repo(), tag)
	triples := []string{
		"x86_64-pc-windows-msvc.zip",
		"aarch64-pc-windows-msvc.zip",
		"aarch64-apple-darwin.tar.xz",
		"x86_64-apple-darwin.tar.xz",
		"x86_64-unknown-linux-musl.tar.xz",
		"aarch64-unknown-linux-musl.tar.xz",
		"armv7-unknown-linux-musleabi.tar.xz",
	}

	assets := make([]Asset, 0, len(triples))
	for _, triple := range triples {
		name := "typst-" + triple
		contentType := contentTypeXz
		if path.Ext(name) == ".zip" {
			contentType = contentTypeZip
		}
		assets = append(assets, Asset{
			Name:        name,
			DownloadURL: base + "/" + name,
			ContentType: contentType,
		})
	}
	return assets
}
