package binary

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp" //nolint:staticcheck // Using ProtonMail's maintained fork
	"github.com/jedisct1/go-minisign"

	"github.com/ZebulonRouseFrantzich/toolsmith/internal/logx"
)

// VerificationMethod indicates how an archive was verified
type VerificationMethod int

const (
	// VerificationNone indicates no verification was configured
	VerificationNone VerificationMethod = iota
	// VerificationPGP indicates an OpenPGP detached signature
	VerificationPGP
	// VerificationMinisign indicates a minisign signature
	VerificationMinisign
	// VerificationSHA256 indicates a pinned SHA256 digest
	VerificationSHA256
)

// String returns the string representation of the verification method
func (v VerificationMethod) String() string {
	switch v {
	case VerificationPGP:
		return "PGP"
	case VerificationMinisign:
		return "minisign"
	case VerificationSHA256:
		return "SHA256"
	case VerificationNone:
		return "None"
	default:
		return "Unknown"
	}
}

// DefaultSignatureSuffix is appended to the asset URL to find a PGP signature
const DefaultSignatureSuffix = ".sig"

// minisignSuffix is appended to the asset URL to find a minisign signature
const minisignSuffix = ".minisig"

// VerifyOptions configures verification of one tool's downloads.
// Every configured check must pass.
type VerifyOptions struct {
	// SHA256 is the expected hex digest of the archive
	SHA256 string
	// MinisignKey is a minisign public key, inline or as a file path
	MinisignKey string
	// PGPKeyring is the path to an armored or binary OpenPGP keyring
	PGPKeyring string
	// SignatureSuffix locates the PGP signature (default ".sig")
	SignatureSuffix string
}

// Enabled reports whether any check is configured
func (o VerifyOptions) Enabled() bool {
	return o.SHA256 != "" || o.MinisignKey != "" || o.PGPKeyring != ""
}

// VerificationResult contains the outcome of a verification attempt
type VerificationResult struct {
	Method  VerificationMethod
	Success bool
	Error   error
}

// Verifier checks downloaded archives against configured digests and
// signatures. Signature files are fetched through the downloader so they
// follow the same mirror order as the archive.
type Verifier struct {
	downloader *Downloader
	logger     logx.Logger
}

// NewVerifier creates a new verifier
func NewVerifier(downloader *Downloader, logger logx.Logger) *Verifier {
	return &Verifier{
		downloader: downloader,
		logger:     logx.OrNop(logger),
	}
}

// Verify runs every check configured in opts against archivePath.
// The returned error wraps ErrVerification when any check fails.
func (v *Verifier) Verify(ctx context.Context, archivePath string, asset Asset, opts VerifyOptions, useMirrors bool) ([]VerificationResult, error) {
	if !opts.Enabled() {
		return []VerificationResult{{Method: VerificationNone, Success: true}}, nil
	}

	var results []VerificationResult

	if opts.SHA256 != "" {
		result := v.verifySHA256(archivePath, opts.SHA256)
		results = append(results, result)
		if !result.Success {
			return results, fmt.Errorf("%w: %w", ErrVerification, result.Error)
		}
	}

	if opts.MinisignKey != "" {
		sigPath, err := v.fetchSignature(ctx, asset.DownloadURL+minisignSuffix, archivePath+minisignSuffix, useMirrors)
		if err != nil {
			return results, fmt.Errorf("%w: fetch minisign signature: %w", ErrVerification, err)
		}
		defer os.Remove(sigPath)

		result := v.verifyMinisign(archivePath, sigPath, opts.MinisignKey)
		results = append(results, result)
		if !result.Success {
			return results, fmt.Errorf("%w: %w", ErrVerification, result.Error)
		}
	}

	if opts.PGPKeyring != "" {
		suffix := opts.SignatureSuffix
		if suffix == "" {
			suffix = DefaultSignatureSuffix
		}
		sigPath, err := v.fetchSignature(ctx, asset.DownloadURL+suffix, archivePath+suffix, useMirrors)
		if err != nil {
			return results, fmt.Errorf("%w: fetch PGP signature: %w", ErrVerification, err)
		}
		defer os.Remove(sigPath)

		result := v.verifyPGP(archivePath, sigPath, opts.PGPKeyring)
		results = append(results, result)
		if !result.Success {
			return results, fmt.Errorf("%w: %w", ErrVerification, result.Error)
		}
	}

	for _, r := range results {
		v.logger.Info("archive verified", "path", archivePath, "method", r.Method.String())
	}
	return results, nil
}

func (v *Verifier) fetchSignature(ctx context.Context, url, destPath string, useMirrors bool) (string, error) {
	if v.downloader == nil {
		return "", fmt.Errorf("no downloader configured")
	}
	if _, err := v.downloader.FetchWithMirrors(ctx, url, destPath, useMirrors); err != nil {
		return "", err
	}
	return destPath, nil
}

// verifySHA256 compares the archive digest with the expected value
func (v *Verifier) verifySHA256(archivePath, expected string) VerificationResult {
	actual, err := calculateSHA256(archivePath)
	if err != nil {
		return VerificationResult{
			Method: VerificationSHA256,
			Error:  fmt.Errorf("calculate checksum: %w", err),
		}
	}

	// Compare checksums (case-insensitive)
	if !strings.EqualFold(actual, strings.TrimSpace(expected)) {
		return VerificationResult{
			Method: VerificationSHA256,
			Error: fmt.Errorf("checksum mismatch:\nactual:   %s\nexpected: %s",
				actual, expected),
		}
	}

	return VerificationResult{Method: VerificationSHA256, Success: true}
}

// verifyMinisign checks a minisign signature. key is either the public key
// itself or a path to a minisign .pub file.
func (v *Verifier) verifyMinisign(archivePath, sigPath, key string) VerificationResult {
	fail := func(err error) VerificationResult {
		return VerificationResult{Method: VerificationMinisign, Error: err}
	}

	var (
		pubKey minisign.PublicKey
		err    error
	)
	if _, statErr := os.Stat(key); statErr == nil {
		pubKey, err = minisign.NewPublicKeyFromFile(key)
	} else {
		pubKey, err = minisign.NewPublicKey(strings.TrimSpace(key))
	}
	if err != nil {
		return fail(fmt.Errorf("read minisign public key: %w", err))
	}

	sig, err := minisign.NewSignatureFromFile(sigPath)
	if err != nil {
		return fail(fmt.Errorf("read minisign signature: %w", err))
	}

	content, err := os.ReadFile(archivePath)
	if err != nil {
		return fail(fmt.Errorf("read archive: %w", err))
	}

	valid, err := pubKey.Verify(content, sig)
	if err != nil {
		return fail(fmt.Errorf("minisign: %w", err))
	}
	if !valid {
		return fail(fmt.Errorf("minisign: signature does not match"))
	}

	return VerificationResult{Method: VerificationMinisign, Success: true}
}

// verifyPGP checks a detached OpenPGP signature, armored or binary
func (v *Verifier) verifyPGP(archivePath, sigPath, keyringPath string) VerificationResult {
	fail := func(err error) VerificationResult {
		return VerificationResult{Method: VerificationPGP, Error: err}
	}

	keyring, err := loadKeyring(keyringPath)
	if err != nil {
		return fail(fmt.Errorf("load keyring: %w", err))
	}

	archiveFile, err := os.Open(archivePath)
	if err != nil {
		return fail(fmt.Errorf("open archive: %w", err))
	}
	defer archiveFile.Close()

	sigFile, err := os.Open(sigPath)
	if err != nil {
		return fail(fmt.Errorf("open signature: %w", err))
	}
	defer sigFile.Close()

	// Try armored first
	_, err = openpgp.CheckArmoredDetachedSignature(keyring, archiveFile, sigFile, nil)
	if err != nil {
		archiveFile.Seek(0, io.SeekStart)
		sigFile.Seek(0, io.SeekStart)
		_, err = openpgp.CheckDetachedSignature(keyring, archiveFile, sigFile, nil)
	}
	if err != nil {
		return fail(fmt.Errorf("verify signature: %w", err))
	}

	return VerificationResult{Method: VerificationPGP, Success: true}
}

// loadKeyring reads an OpenPGP keyring from disk
func loadKeyring(path string) (openpgp.EntityList, error) {
	keyringFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	defer keyringFile.Close()

	keyring, err := openpgp.ReadArmoredKeyRing(keyringFile)
	if err != nil {
		// Try reading as non-armored keyring
		keyringFile.Seek(0, io.SeekStart)
		keyring, err = openpgp.ReadKeyRing(keyringFile)
		if err != nil {
			return nil, fmt.Errorf("read keyring: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring is empty")
	}

	return keyring, nil
}

// calculateSHA256 calculates the SHA256 checksum of a file
func calculateSHA256(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
