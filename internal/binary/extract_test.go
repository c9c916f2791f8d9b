package binary

import (
	"archive/tar"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"
)

// archiveEntry describes one entry of a test archive
type archiveEntry struct {
	name     string
	body     string
	mode     int64
	typeflag byte
	linkname string
}

func file(name, body string, mode int64) archiveEntry {
	return archiveEntry{name: name, body: body, mode: mode, typeflag: tar.TypeReg}
}

func dir(name string) archiveEntry {
	return archiveEntry{name: name, mode: 0755, typeflag: tar.TypeDir}
}

func symlink(name, target string) archiveEntry {
	return archiveEntry{name: name, mode: 0777, typeflag: tar.TypeSymlink, linkname: target}
}

// buildTar returns an uncompressed tar stream of entries
func buildTar(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		header := &tar.Header{
			Name:     e.name,
			Mode:     e.mode,
			Typeflag: e.typeflag,
			Linkname: e.linkname,
		}
		if e.typeflag == tar.TypeReg {
			header.Size = int64(len(e.body))
		}
		if err := tw.WriteHeader(header); err != nil {
			t.Fatalf("failed to write header for %s: %v", e.name, err)
		}
		if e.typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.body)); err != nil {
				t.Fatalf("failed to write content for %s: %v", e.name, err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("failed to close tar writer: %v", err)
	}
	return buf.Bytes()
}

// createTestTarGz writes a .tar.gz archive and returns its path
func createTestTarGz(t *testing.T, entries []archiveEntry) string {
	t.Helper()

	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(buildTar(t, entries)); err != nil {
		t.Fatalf("failed to gzip: %v", err)
	}
	if err := gw.Close(); err != nil {
		t.Fatalf("failed to close gzip writer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.tar.gz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

// createTestTarXz writes a .tar.xz archive and returns its path
func createTestTarXz(t *testing.T, entries []archiveEntry) string {
	t.Helper()

	var buf bytes.Buffer
	xw, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatalf("failed to create xz writer: %v", err)
	}
	if _, err := xw.Write(buildTar(t, entries)); err != nil {
		t.Fatalf("failed to xz: %v", err)
	}
	if err := xw.Close(); err != nil {
		t.Fatalf("failed to close xz writer: %v", err)
	}

	path := filepath.Join(t.TempDir(), "test.tar.xz")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

// buildZip returns a zip archive whose entries carry Unix modes
func buildZip(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		header := &zip.FileHeader{Name: e.name, Method: zip.Deflate}
		switch e.typeflag {
		case tar.TypeDir:
			if !strings.HasSuffix(header.Name, "/") {
				header.Name += "/"
			}
			header.SetMode(fs.ModeDir | fs.FileMode(e.mode))
		case tar.TypeSymlink:
			header.SetMode(fs.ModeSymlink | 0777)
		default:
			header.SetMode(fs.FileMode(e.mode))
		}

		w, err := zw.CreateHeader(header)
		if err != nil {
			t.Fatalf("failed to create zip entry %s: %v", e.name, err)
		}
		content := e.body
		if e.typeflag == tar.TypeSymlink {
			content = e.linkname
		}
		if e.typeflag != tar.TypeDir {
			if _, err := w.Write([]byte(content)); err != nil {
				t.Fatalf("failed to write zip entry %s: %v", e.name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip writer: %v", err)
	}
	return buf.Bytes()
}

func createTestZip(t *testing.T, entries []archiveEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.zip")
	if err := os.WriteFile(path, buildZip(t, entries), 0644); err != nil {
		t.Fatalf("failed to write archive: %v", err)
	}
	return path
}

// snapshot records every entry below root with its mode and content
func snapshot(t *testing.T, root string) map[string]string {
	t.Helper()

	out := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == root {
			return nil
		}
		rel, _ := filepath.Rel(root, p)
		info, err := os.Lstat(p)
		if err != nil {
			return err
		}
		entry := info.Mode().String()
		if info.Mode().IsRegular() {
			data, err := os.ReadFile(p)
			if err != nil {
				return err
			}
			entry += ":" + string(data)
		}
		out[filepath.ToSlash(rel)] = entry
		return nil
	})
	if err != nil {
		t.Fatalf("failed to snapshot %s: %v", root, err)
	}
	return out
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "pandoc-3.7.0.2-windows-x86_64.zip", want: FormatZip},
		{input: "/tmp/pandoc-3.7.0.2-linux-amd64.tar.gz", want: FormatTarGz},
		{input: "archive.tgz", want: FormatTarGz},
		{input: "typst-x86_64-unknown-linux-musl.tar.xz", want: FormatTarXz},
		{input: "TYPST.TXZ", want: FormatTarXz},
		{input: "https://example.com/dl/typst.tar.xz?token=abc", want: FormatTarXz},
		{input: "https://example.com/dl/pandoc.zip#frag", want: FormatZip},
		{input: "pandoc-3.7.0.2-windows-x86_64.msi", wantErr: true},
		{input: "pandoc-3.7.0.2-arm64-macOS.pkg", wantErr: true},
		{input: "plain.gz", wantErr: true},
		{input: "source.tar.bz2", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := DetectFormat(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestExtractFormats(t *testing.T) {
	entries := []archiveEntry{
		dir("pandoc-3.7/"),
		dir("pandoc-3.7/bin/"),
		file("pandoc-3.7/bin/pandoc", "#!/bin/sh\necho pandoc\n", 0755),
		file("pandoc-3.7/share/man/man1/pandoc.1.gz", "manpage", 0644),
	}

	tests := []struct {
		name    string
		archive func(t *testing.T) string
	}{
		{name: "tar_gz", archive: func(t *testing.T) string { return createTestTarGz(t, entries) }},
		{name: "tar_xz", archive: func(t *testing.T) string { return createTestTarXz(t, entries) }},
		{name: "zip", archive: func(t *testing.T) string { return createTestZip(t, entries) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "out")
			extractor := NewExtractor(nil)

			got, err := extractor.Extract(tt.archive(t), target)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got != target {
				t.Errorf("Extract() = %q, want %q", got, target)
			}

			exe := filepath.Join(target, "pandoc-3.7", "bin", "pandoc")
			content, err := os.ReadFile(exe)
			if err != nil {
				t.Fatalf("expected extracted executable: %v", err)
			}
			if !strings.Contains(string(content), "echo pandoc") {
				t.Errorf("unexpected content %q", content)
			}

			if runtime.GOOS != "windows" {
				info, err := os.Stat(exe)
				if err != nil {
					t.Fatal(err)
				}
				if info.Mode().Perm()&0111 == 0 {
					t.Errorf("executable bit lost: %v", info.Mode())
				}
			}

			if _, err := os.Stat(filepath.Join(target, "pandoc-3.7", "share", "man", "man1", "pandoc.1.gz")); err != nil {
				t.Errorf("nested file missing: %v", err)
			}
		})
	}
}

func TestExtractZipIdempotent(t *testing.T) {
	archive := createTestZip(t, []archiveEntry{
		dir("bin/"),
		file("bin/pandoc", "binary-v1", 0755),
		file("README", "readme", 0644),
	})

	target := t.TempDir()
	extractor := NewExtractor(nil)

	if _, err := extractor.Extract(archive, target); err != nil {
		t.Fatalf("first Extract() error = %v", err)
	}
	first := snapshot(t, target)

	if _, err := extractor.Extract(archive, target); err != nil {
		t.Fatalf("second Extract() error = %v", err)
	}
	second := snapshot(t, target)

	if len(first) != len(second) {
		t.Fatalf("file sets differ:\nfirst:  %v\nsecond: %v", first, second)
	}
	for name, want := range first {
		if got := second[name]; got != want {
			t.Errorf("%s: first %q, second %q", name, want, got)
		}
	}
}

func TestExtractOverwritesExistingFiles(t *testing.T) {
	target := t.TempDir()
	if err := os.MkdirAll(filepath.Join(target, "bin"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "bin", "typst"), []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "keep.txt"), []byte("untouched"), 0644); err != nil {
		t.Fatal(err)
	}

	archive := createTestTarXz(t, []archiveEntry{file("bin/typst", "new", 0755)})
	if _, err := NewExtractor(nil).Extract(archive, target); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	content, _ := os.ReadFile(filepath.Join(target, "bin", "typst"))
	if string(content) != "new" {
		t.Errorf("file not replaced, content = %q", content)
	}
	kept, _ := os.ReadFile(filepath.Join(target, "keep.txt"))
	if string(kept) != "untouched" {
		t.Errorf("unrelated file changed, content = %q", kept)
	}
}

func TestExtractPathTraversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []archiveEntry
	}{
		{
			name:    "parent_directory",
			entries: []archiveEntry{file("good.txt", "ok", 0644), file("../../../etc/evil", "bad", 0644)},
		},
		{
			name:    "nested_parent",
			entries: []archiveEntry{file("a/../../evil", "bad", 0644)},
		},
		{
			name:    "absolute_path",
			entries: []archiveEntry{file("/tmp/evil", "bad", 0644)},
		},
		{
			name:    "symlink_outside",
			entries: []archiveEntry{symlink("link", "../../outside")},
		},
		{
			name:    "absolute_symlink",
			entries: []archiveEntry{symlink("link", "/etc/passwd")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := filepath.Join(t.TempDir(), "out")
			_, err := NewExtractor(nil).Extract(createTestTarGz(t, tt.entries), target)
			if !errors.Is(err, ErrIO) {
				t.Fatalf("expected ErrIO, got %v", err)
			}

			// Nothing from the archive may reach the target
			entries, _ := os.ReadDir(target)
			if len(entries) != 0 {
				t.Errorf("target should be empty after rejected archive, found %d entries", len(entries))
			}
		})
	}
}

func TestExtractSymlinkInsideRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}

	archive := createTestTarGz(t, []archiveEntry{
		dir("bin/"),
		file("bin/pandoc", "binary", 0755),
		symlink("bin/pandoc-server", "pandoc"),
	})
	target := t.TempDir()

	if _, err := NewExtractor(nil).Extract(archive, target); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	link, err := os.Readlink(filepath.Join(target, "bin", "pandoc-server"))
	if err != nil {
		t.Fatalf("expected symlink: %v", err)
	}
	if link != "pandoc" {
		t.Errorf("link target = %q, want pandoc", link)
	}
}

func TestExtractConflictLeavesTargetUntouched(t *testing.T) {
	target := t.TempDir()
	// A directory sits where the archive carries a file
	if err := os.MkdirAll(filepath.Join(target, "pandoc"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "README"), []byte("old readme"), 0644); err != nil {
		t.Fatal(err)
	}
	before := snapshot(t, target)

	archive := createTestZip(t, []archiveEntry{
		file("README", "new readme", 0644),
		file("pandoc", "binary", 0755),
	})

	_, err := NewExtractor(nil).Extract(archive, target)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for type conflict, got %v", err)
	}

	after := snapshot(t, target)
	if len(before) != len(after) {
		t.Fatalf("target changed:\nbefore: %v\nafter:  %v", before, after)
	}
	for name, want := range before {
		if after[name] != want {
			t.Errorf("%s changed from %q to %q", name, want, after[name])
		}
	}
}

func TestExtractRemovesStagingDir(t *testing.T) {
	target := t.TempDir()
	archive := createTestTarGz(t, []archiveEntry{file("pandoc", "binary", 0755)})

	if _, err := NewExtractor(nil).Extract(archive, target); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	entries, err := os.ReadDir(target)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), stagingPrefix) {
			t.Errorf("staging directory left behind: %s", e.Name())
		}
	}
}

func TestExtractCorruptedArchive(t *testing.T) {
	tests := []string{"corrupt.tar.gz", "corrupt.tar.xz", "corrupt.zip"}

	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := os.WriteFile(path, []byte("this is not an archive"), 0644); err != nil {
				t.Fatal(err)
			}

			_, err := NewExtractor(nil).Extract(path, filepath.Join(t.TempDir(), "out"))
			if !errors.Is(err, ErrIO) {
				t.Fatalf("expected ErrIO for corrupted archive, got %v", err)
			}
		})
	}
}

func TestExtractUnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pandoc.msi")
	if err := os.WriteFile(path, []byte("msi"), 0644); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(t.TempDir(), "out")
	_, err := NewExtractor(nil).Extract(path, target)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Error("target should not be created for unsupported formats")
	}
}

func TestExtractMissingArchive(t *testing.T) {
	_, err := NewExtractor(nil).Extract(filepath.Join(t.TempDir(), "missing.zip"), t.TempDir())
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO, got %v", err)
	}
}

func TestExtractBytes(t *testing.T) {
	data := buildZip(t, []archiveEntry{file("typst-x86_64-pc-windows-msvc/typst.exe", "exe", 0755)})
	target := t.TempDir()

	if _, err := NewExtractor(nil).ExtractBytes(data, "https://example.com/typst.zip?x=1", target); err != nil {
		t.Fatalf("ExtractBytes() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "typst-x86_64-pc-windows-msvc", "typst.exe")); err != nil {
		t.Errorf("expected extracted file: %v", err)
	}

	if _, err := NewExtractor(nil).ExtractBytes(data, "typst.rar", target); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLocalName(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{name: "plain", entry: "bin/pandoc", want: filepath.Join("bin", "pandoc")},
		{name: "dot_prefix", entry: "./bin/pandoc", want: filepath.Join("bin", "pandoc")},
		{name: "dotdot_name", entry: "..pandoc", want: "..pandoc"},
		{name: "archive_root", entry: "./", want: "."},
		{name: "escape", entry: "../pandoc", wantErr: true},
		{name: "backslash_escape", entry: `..\..\pandoc`, wantErr: true},
		{name: "absolute", entry: "/bin/pandoc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := localName(tt.entry)
			if (err != nil) != tt.wantErr {
				t.Fatalf("localName(%q) error = %v, wantErr %v", tt.entry, err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("localName(%q) = %q, want %q", tt.entry, got, tt.want)
			}
		})
	}
}

// findNamed returns every path below root whose base name is name
func findNamed(t *testing.T, root, name string) []string {
	t.Helper()

	var found []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Name() == name {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk %s: %v", root, err)
	}
	return found
}

func TestExtractSymlinkChainEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}

	// Each link is lexically inside the archive, but a/b/c/d really
	// points two levels above the target.
	chain := []archiveEntry{
		dir("a/"),
		symlink("a/b", ".."),
		symlink("a/b/c", ".."),
		symlink("a/b/c/d", ".."),
		file("a/b/c/d/evil", "pwned", 0644),
	}

	tests := []struct {
		name    string
		archive func(t *testing.T) string
	}{
		{name: "tar_gz", archive: func(t *testing.T) string { return createTestTarGz(t, chain) }},
		{name: "zip", archive: func(t *testing.T) string { return createTestZip(t, chain) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := t.TempDir()
			target := filepath.Join(base, "managed")

			_, err := NewExtractor(nil).Extract(tt.archive(t), target)
			if !errors.Is(err, ErrIO) {
				t.Fatalf("expected ErrIO, got %v", err)
			}

			if found := findNamed(t, filepath.Dir(base), "evil"); len(found) != 0 {
				t.Errorf("file written through symlink chain: %v", found)
			}
			entries, _ := os.ReadDir(target)
			if len(entries) != 0 {
				t.Errorf("target should be empty after rejected archive, found %d entries", len(entries))
			}
		})
	}
}

func TestExtractRejectsLinksEscapingThroughLinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}

	tests := []struct {
		name    string
		entries []archiveEntry
	}{
		{
			// Nothing is written through the chain, but c points at the
			// parent of the staging dir
			name:    "partial_chain",
			entries: []archiveEntry{dir("a/"), symlink("a/b", ".."), symlink("a/b/c", "..")},
		},
		{
			name:    "parent_of_self_link",
			entries: []archiveEntry{symlink("s", "."), symlink("z", "s/..")},
		},
		{
			name:    "parent_of_missing",
			entries: []archiveEntry{symlink("z", "later/..")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, archive := range []string{createTestTarGz(t, tt.entries), createTestZip(t, tt.entries)} {
				target := filepath.Join(t.TempDir(), "out")
				_, err := NewExtractor(nil).Extract(archive, target)
				if !errors.Is(err, ErrIO) {
					t.Fatalf("%s: expected ErrIO, got %v", filepath.Base(archive), err)
				}
				entries, _ := os.ReadDir(target)
				if len(entries) != 0 {
					t.Errorf("%s: target should be empty, found %d entries", filepath.Base(archive), len(entries))
				}
			}
		})
	}
}

func TestExtractLinkToLinkInsideRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on Windows")
	}

	archive := createTestTarGz(t, []archiveEntry{
		dir("pandoc-3.7/bin/"),
		file("pandoc-3.7/bin/pandoc", "binary", 0755),
		symlink("current", "pandoc-3.7"),
		symlink("pandoc", "current/bin/pandoc"),
	})
	target := t.TempDir()

	if _, err := NewExtractor(nil).Extract(archive, target); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(target, "pandoc"))
	if err != nil || string(data) != "binary" {
		t.Errorf("pandoc via links = %q, %v", data, err)
	}
}

func TestExtractUnwritableDirLeavesTargetUntouched(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("directory permissions are not enforced on Windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}

	target := t.TempDir()
	bin := filepath.Join(target, "bin")
	if err := os.MkdirAll(bin, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(bin, "pandoc"), []byte("old binary"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(target, "README"), []byte("old readme"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(bin, 0555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(bin, 0755) })
	before := snapshot(t, target)

	// README sorts before bin, so a partial commit would replace it first
	archive := createTestTarGz(t, []archiveEntry{
		file("README", "new readme", 0644),
		dir("bin/"),
		file("bin/pandoc", "new binary", 0755),
	})

	_, err := NewExtractor(nil).Extract(archive, target)
	if !errors.Is(err, ErrIO) {
		t.Fatalf("expected ErrIO for unwritable directory, got %v", err)
	}

	after := snapshot(t, target)
	if len(before) != len(after) {
		t.Fatalf("target changed:\nbefore: %v\nafter:  %v", before, after)
	}
	for name, want := range before {
		if after[name] != want {
			t.Errorf("%s changed from %q to %q", name, want, after[name])
		}
	}
}
