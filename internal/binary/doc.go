// Package binary provides functionality for matching, downloading, verifying,
// and extracting the pandoc and typst release archives that toolsmith manages.
//
// # Platform Matching
//
// Patterns maps a tool kind and a target OS/architecture onto the ordered list
// of asset-name substrings acceptable for that platform. Unknown pairs fall
// back to the Linux x86_64 entry rather than failing.
//
// # Downloads
//
// Downloader streams an asset to disk. When mirrors are enabled every prefix
// in the MirrorList is tried in order and the first complete download wins.
// The last prefix is always empty, meaning the origin URL itself.
//
// # Extraction
//
// Extractor unpacks zip, tar.gz, and tar.xz archives. Entries are staged
// first and then renamed over the target directory, so a failed extraction
// never leaves a half-replaced tree behind.
//
// # Verification
//
// Verification is optional and configured per tool:
//   - SHA256: a pinned digest of the archive
//   - minisign: a .minisig signature fetched next to the asset
//   - PGP: a detached signature checked against a local keyring
//
// # Usage
//
//	downloader := binary.NewDownloader(binary.DownloaderConfig{Logger: logger})
//	installer, err := binary.NewInstaller(binary.InstallerConfig{Downloader: downloader})
//	if err != nil {
//	    return err
//	}
//
//	result, err := installer.Install(ctx, binary.InstallRequest{
//	    Kind:      binary.Converter,
//	    Release:   release,
//	    TargetDir: "/opt/app/resources/pandoc",
//	    Config:    binary.CurrentDownloadConfig(platformInfo, true),
//	})
package binary
