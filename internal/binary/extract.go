package binary

import (
	"archive/tar"
	"bufio"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/ulikunitz/xz"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
)

// Format is an archive format the extractor understands
type Format int

const (
	// FormatUnknown is returned alongside ErrUnsupportedFormat
	FormatUnknown Format = iota
	// FormatZip is a zip archive
	FormatZip
	// FormatTarGz is a gzip-compressed tarball
	FormatTarGz
	// FormatTarXz is an xz-compressed tarball
	FormatTarXz
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatZip:
		return "zip"
	case FormatTarGz:
		return "tar.gz"
	case FormatTarXz:
		return "tar.xz"
	default:
		return "unknown"
	}
}

// zip creator host ids whose external attributes carry a Unix mode
const (
	creatorUnix   = 3
	creatorMacOSX = 19
)

// stagingPrefix names the temporary directory used while unpacking
const stagingPrefix = ".toolsmith-extract-"

// writeCheckPattern names the file used to test that a directory accepts writes
const writeCheckPattern = ".toolsmith-write-*"

// maxLinkDepth bounds symlink resolution when checking staged links
const maxLinkDepth = 40

// DetectFormat determines the archive format from a file name, path, or URL
func DetectFormat(nameOrURL string) (Format, error) {
	name := nameOrURL
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.ToLower(path.Base(filepath.ToSlash(name)))

	switch {
	case strings.HasSuffix(name, ".zip"):
		return FormatZip, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		return FormatTarGz, nil
	case strings.HasSuffix(name, ".tar.xz"), strings.HasSuffix(name, ".txz"):
		return FormatTarXz, nil
	default:
		return FormatUnknown, fmt.Errorf("%w: %s", ErrUnsupportedFormat, nameOrURL)
	}
}

// Extractor handles archive extraction
type Extractor struct {
	logger logx.Logger
}

// NewExtractor creates a new extractor
func NewExtractor(logger logx.Logger) *Extractor {
	return &Extractor{logger: logx.OrNop(logger)}
}

// Extract unpacks the archive at archivePath into targetDir and returns the
// target directory. The format is taken from the file extension.
//
// Entries are unpacked into a staging directory first. Existing files in
// targetDir are only replaced once the whole archive has been unpacked and
// checked for conflicts, so a failure leaves targetDir untouched.
func (e *Extractor) Extract(archivePath, targetDir string) (string, error) {
	format, err := DetectFormat(archivePath)
	if err != nil {
		return "", err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("%w: open archive: %w", ErrIO, err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("%w: stat archive: %w", ErrIO, err)
	}

	e.logger.Debug("extracting archive", "path", archivePath, "format", format.String(), "target", targetDir)
	return e.extract(format, f, stat.Size(), targetDir)
}

// ExtractBytes unpacks an in-memory archive. nameHint is a file name or URL
// used only to determine the format.
func (e *Extractor) ExtractBytes(data []byte, nameHint, targetDir string) (string, error) {
	format, err := DetectFormat(nameHint)
	if err != nil {
		return "", err
	}
	return e.extract(format, bytes.NewReader(data), int64(len(data)), targetDir)
}

// archiveSource is satisfied by *os.File and *bytes.Reader
type archiveSource interface {
	io.Reader
	io.ReaderAt
}

func (e *Extractor) extract(format Format, src archiveSource, size int64, targetDir string) (string, error) {
	var unpack func(root *os.Root) error

	switch format {
	case FormatZip:
		unpack = func(root *os.Root) error {
			zr, err := zip.NewReader(src, size)
			if err != nil {
				return fmt.Errorf("%w: open zip: %w", ErrIO, err)
			}
			return unzip(zr, root)
		}
	case FormatTarGz:
		unpack = func(root *os.Root) error {
			gz, err := gzip.NewReader(src)
			if err != nil {
				return fmt.Errorf("%w: create gzip reader: %w", ErrIO, err)
			}
			defer gz.Close()
			return untar(gz, root)
		}
	case FormatTarXz:
		unpack = func(root *os.Root) error {
			xr, err := xz.NewReader(bufio.NewReader(src))
			if err != nil {
				return fmt.Errorf("%w: create xz reader: %w", ErrIO, err)
			}
			// Decompress fully before reading the tar stream
			data, err := io.ReadAll(xr)
			if err != nil {
				return fmt.Errorf("%w: decompress xz: %w", ErrIO, err)
			}
			return untar(bytes.NewReader(data), root)
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return e.install(targetDir, unpack)
}

// install runs unpack against a staging directory inside targetDir, then
// moves the staged tree over targetDir. Every staged write goes through an
// os.Root, so no entry can be created outside the staging directory even
// through symlinks the archive itself created.
func (e *Extractor) install(targetDir string, unpack func(root *os.Root) error) (string, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("%w: create target dir: %w", ErrIO, err)
	}

	staging, err := os.MkdirTemp(targetDir, stagingPrefix)
	if err != nil {
		return "", fmt.Errorf("%w: create staging dir: %w", ErrIO, err)
	}
	defer os.RemoveAll(staging)

	root, err := os.OpenRoot(staging)
	if err != nil {
		return "", fmt.Errorf("%w: open staging dir: %w", ErrIO, err)
	}
	err = unpack(root)
	root.Close()
	if err != nil {
		return "", err
	}

	if err := checkLinks(staging); err != nil {
		return "", err
	}

	if err := checkConflicts(staging, targetDir); err != nil {
		return "", err
	}

	if err := commit(staging, targetDir); err != nil {
		return "", err
	}

	e.logger.Debug("archive extracted", "target", targetDir)
	return targetDir, nil
}

// unzip writes every zip entry below root
func unzip(zr *zip.Reader, root *os.Root) error {
	for _, f := range zr.File {
		name, err := localName(f.Name)
		if err != nil {
			return err
		}
		if name == "." {
			continue
		}

		// Directory entries end in a separator
		if strings.HasSuffix(f.Name, "/") || strings.HasSuffix(f.Name, `\`) || f.FileInfo().IsDir() {
			if err := root.MkdirAll(name, 0755); err != nil {
				return fmt.Errorf("%w: create directory %s: %w", ErrIO, f.Name, err)
			}
			continue
		}

		if err := mkParent(root, name); err != nil {
			return fmt.Errorf("%w: create parent dir for %s: %w", ErrIO, f.Name, err)
		}

		mode := f.Mode()
		unixMode := runtime.GOOS != "windows" &&
			(f.CreatorVersion>>8 == creatorUnix || f.CreatorVersion>>8 == creatorMacOSX)

		if unixMode && mode&fs.ModeSymlink != 0 {
			if err := unzipSymlink(f, root, name); err != nil {
				return err
			}
			continue
		}

		if err := unzipFile(f, root, name); err != nil {
			return err
		}

		// Reapply the Unix mode so executables stay runnable
		if unixMode {
			if err := root.Chmod(name, mode.Perm()); err != nil {
				return fmt.Errorf("%w: chmod %s: %w", ErrIO, f.Name, err)
			}
		}
	}
	return nil
}

func unzipFile(f *zip.File, root *os.Root, name string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", ErrIO, f.Name, err)
	}
	defer rc.Close()

	out, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("%w: create file %s: %w", ErrIO, f.Name, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("%w: write file %s: %w", ErrIO, f.Name, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("%w: close file %s: %w", ErrIO, f.Name, err)
	}
	return nil
}

// unzipSymlink recreates a symlink entry; the link target is the entry body
func unzipSymlink(f *zip.File, root *os.Root, name string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: open entry %s: %w", ErrIO, f.Name, err)
	}
	defer rc.Close()

	linkname, err := io.ReadAll(io.LimitReader(rc, 4096))
	if err != nil {
		return fmt.Errorf("%w: read link %s: %w", ErrIO, f.Name, err)
	}
	if err := checkLink(name, string(linkname)); err != nil {
		return err
	}
	if err := root.Symlink(string(linkname), name); err != nil {
		return fmt.Errorf("%w: create symlink %s: %w", ErrIO, f.Name, err)
	}
	return nil
}

// untar writes every tar entry below root using the archive's own modes
func untar(r io.Reader, root *os.Root) error {
	tr := tar.NewReader(r)

	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: read tar header: %w", ErrIO, err)
		}

		name, err := localName(header.Name)
		if err != nil {
			return err
		}
		if name == "." {
			continue
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := root.MkdirAll(name, 0755); err != nil {
				return fmt.Errorf("%w: create directory %s: %w", ErrIO, header.Name, err)
			}

		case tar.TypeReg:
			if err := mkParent(root, name); err != nil {
				return fmt.Errorf("%w: create parent dir for %s: %w", ErrIO, header.Name, err)
			}

			perm := header.FileInfo().Mode().Perm()
			outFile, err := root.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
			if err != nil {
				return fmt.Errorf("%w: create file %s: %w", ErrIO, header.Name, err)
			}
			if _, err := io.Copy(outFile, tr); err != nil {
				outFile.Close()
				return fmt.Errorf("%w: write file %s: %w", ErrIO, header.Name, err)
			}
			if err := outFile.Close(); err != nil {
				return fmt.Errorf("%w: close file %s: %w", ErrIO, header.Name, err)
			}
			// OpenFile is subject to the umask
			if err := root.Chmod(name, perm); err != nil {
				return fmt.Errorf("%w: chmod %s: %w", ErrIO, header.Name, err)
			}

		case tar.TypeSymlink:
			if err := mkParent(root, name); err != nil {
				return fmt.Errorf("%w: create parent dir for %s: %w", ErrIO, header.Name, err)
			}
			if err := checkLink(name, header.Linkname); err != nil {
				return err
			}
			if err := root.Symlink(header.Linkname, name); err != nil {
				return fmt.Errorf("%w: create symlink %s: %w", ErrIO, header.Name, err)
			}

		case tar.TypeLink:
			source, err := localName(header.Linkname)
			if err != nil {
				return err
			}
			if err := mkParent(root, name); err != nil {
				return fmt.Errorf("%w: create parent dir for %s: %w", ErrIO, header.Name, err)
			}
			if err := root.Link(source, name); err != nil {
				return fmt.Errorf("%w: create hard link %s: %w", ErrIO, header.Name, err)
			}

		default:
			// Skip other types (char devices, block devices, etc.)
			continue
		}
	}
}

func mkParent(root *os.Root, name string) error {
	parent := filepath.Dir(name)
	if parent == "." {
		return nil
	}
	return root.MkdirAll(parent, 0755)
}

// localName converts an archive entry name into a cleaned relative path,
// rejecting names that are absolute or climb above the archive root.
func localName(name string) (string, error) {
	slashed := strings.ReplaceAll(name, `\`, "/")
	if path.IsAbs(slashed) || filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: illegal file path: %s", ErrIO, name)
	}

	cleaned := path.Clean(slashed)
	if cleaned == "." {
		return ".", nil
	}
	local := filepath.FromSlash(cleaned)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: illegal file path: %s", ErrIO, name)
	}
	return local, nil
}

// checkLink rejects link targets that are absolute or lexically leave the
// archive root. Links that only escape through other links are caught by
// checkLinks once the archive is unpacked.
func checkLink(name, linkname string) error {
	if linkname == "" || filepath.IsAbs(linkname) || path.IsAbs(linkname) {
		return fmt.Errorf("%w: illegal link target %q", ErrIO, linkname)
	}
	resolved := filepath.Join(filepath.Dir(name), filepath.FromSlash(linkname))
	if resolved != "." && !filepath.IsLocal(resolved) {
		return fmt.Errorf("%w: illegal link target %q", ErrIO, linkname)
	}
	return nil
}

// checkLinks resolves every staged symlink against the files actually on
// disk and fails when one points outside staging.
func checkLinks(staging string) error {
	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk staging dir: %w", ErrIO, err)
		}
		if d.Type()&fs.ModeSymlink == 0 {
			return nil
		}

		linkname, err := os.Readlink(p)
		if err != nil {
			return fmt.Errorf("%w: read link: %w", ErrIO, err)
		}
		if _, err := resolveWithin(staging, filepath.Dir(p), linkname, 0); err != nil {
			rel, _ := filepath.Rel(staging, p)
			return fmt.Errorf("%w: link %s -> %s: %w", ErrIO, rel, linkname, err)
		}
		return nil
	})
}

// resolveWithin follows linkname from dir one component at a time,
// expanding symlinks as they are met, and fails as soon as the walk leaves
// root. Components that do not exist are taken lexically, but ".." after a
// missing component is refused since its meaning could change later.
func resolveWithin(root, dir, linkname string, depth int) (string, error) {
	if depth > maxLinkDepth {
		return "", fmt.Errorf("too many levels of symbolic links")
	}
	if filepath.IsAbs(linkname) || path.IsAbs(filepath.ToSlash(linkname)) {
		return "", fmt.Errorf("absolute link target")
	}

	current := dir
	missing := false
	for _, part := range strings.Split(filepath.ToSlash(linkname), "/") {
		switch part {
		case "", ".":
			continue
		case "..":
			if missing {
				return "", fmt.Errorf("parent of a missing path")
			}
			current = filepath.Dir(current)
			if !within(root, current) {
				return "", fmt.Errorf("escapes the archive root")
			}
			continue
		}

		next := filepath.Join(current, part)
		if missing {
			current = next
			continue
		}

		info, err := os.Lstat(next)
		switch {
		case os.IsNotExist(err):
			missing = true
			current = next
		case err != nil:
			return "", err
		case info.Mode()&fs.ModeSymlink != 0:
			target, err := os.Readlink(next)
			if err != nil {
				return "", err
			}
			current, err = resolveWithin(root, current, target, depth+1)
			if err != nil {
				return "", err
			}
		default:
			current = next
		}
	}
	return current, nil
}

// within reports whether target is root or below it
func within(root, target string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(target))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator))
}

// checkConflicts fails before anything is moved when a staged entry would
// replace a directory with a file or a file with a directory, or when a
// destination directory does not accept writes.
func checkConflicts(staging, targetDir string) error {
	checked := make(map[string]bool)

	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk staging dir: %w", ErrIO, err)
		}
		if p == staging {
			return nil
		}

		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		dest := filepath.Join(targetDir, rel)

		// A parent that does not exist yet is a staged directory whose own
		// parent was checked when it was visited.
		if parent := filepath.Dir(dest); !checked[parent] {
			checked[parent] = true
			if err := checkWritable(parent); err != nil {
				return fmt.Errorf("%w: cannot install %s: %w", ErrIO, rel, err)
			}
		}

		existing, err := os.Lstat(dest)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: stat %s: %w", ErrIO, rel, err)
		}

		if d.IsDir() != existing.IsDir() {
			return fmt.Errorf("%w: cannot replace %s: existing entry has a different type", ErrIO, rel)
		}
		return nil
	})
}

// checkWritable creates and removes a temporary file in dir. A missing dir
// passes.
func checkWritable(dir string) error {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	f, err := os.CreateTemp(dir, writeCheckPattern)
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// commit moves the staged tree into targetDir, replacing files in place
func commit(staging, targetDir string) error {
	return filepath.WalkDir(staging, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("%w: walk staging dir: %w", ErrIO, err)
		}
		if p == staging {
			return nil
		}

		rel, err := filepath.Rel(staging, p)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrIO, err)
		}
		dest := filepath.Join(targetDir, rel)

		if d.IsDir() {
			if err := os.MkdirAll(dest, 0755); err != nil {
				return fmt.Errorf("%w: create directory %s: %w", ErrIO, rel, err)
			}
			return nil
		}

		if err := os.Rename(p, dest); err != nil {
			return fmt.Errorf("%w: install %s: %w", ErrIO, rel, err)
		}
		return nil
	})
}
