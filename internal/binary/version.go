package binary

import (
	"strconv"
	"strings"
)

// UnknownVersion is reported when a probe prints nothing
const UnknownVersion = "Unknown"

// programNames are stripped from version text. Longer forms come first so
// "pandoc.exe" is removed whole rather than leaving ".exe" behind.
var programNames = []string{"pandoc.exe", "typst.exe", "pandoc", "typst"}

// NormalizeVersion extracts a dotted numeric version from text such as
// "pandoc 3.7.0.2" or "v0.13.1". When no token qualifies, known program
// names are stripped from the input instead. The result is never empty for
// non-empty input.
func NormalizeVersion(raw string) string {
	for _, token := range strings.Fields(raw) {
		if containsProgramName(token) {
			continue
		}
		token = strings.TrimPrefix(token, "v")
		if token == "" || !isDigit(token[0]) {
			continue
		}

		end := 0
		for end < len(token) && (isDigit(token[end]) || token[end] == '.') {
			end++
		}
		return strings.TrimRight(token[:end], ".")
	}

	// Fallback: strip program names from the whole text
	stripped := raw
	for _, name := range programNames {
		stripped = strings.ReplaceAll(stripped, name, "")
	}
	if stripped = strings.TrimSpace(stripped); stripped != "" {
		return stripped
	}
	if trimmed := strings.TrimSpace(raw); trimmed != "" {
		return trimmed
	}
	return raw
}

// VersionsEqual compares two versions by their normalized form.
// This is plain string equality, so "3.6" and "3.6.0" differ.
func VersionsEqual(a, b string) bool {
	return NormalizeVersion(a) == NormalizeVersion(b)
}

// VersionFromOutput extracts the version from --version output, which
// carries it on the first line.
func VersionFromOutput(stdout string) string {
	firstLine, _, _ := strings.Cut(stdout, "\n")
	firstLine = strings.TrimSpace(firstLine)
	if firstLine == "" {
		return UnknownVersion
	}
	return NormalizeVersion(firstLine)
}

// CompareVersions orders two tags by their dotted numeric components and
// returns 1, -1, or 0 like strings.Compare. A leading "v" and any "-" or
// "+" suffix are ignored. Versioned tags sort above unversioned ones; ties
// fall back to reverse string order so sorting stays deterministic.
func CompareVersions(a, b string) int {
	pa, okA := versionParts(a)
	pb, okB := versionParts(b)
	switch {
	case okA && !okB:
		return 1
	case !okA && okB:
		return -1
	case !okA && !okB:
		return strings.Compare(b, a)
	}

	for i := 0; i < len(pa) || i < len(pb); i++ {
		var x, y int
		if i < len(pa) {
			x = pa[i]
		}
		if i < len(pb) {
			y = pb[i]
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	// 3.1 and 3.1.0 compare equal numerically
	return strings.Compare(b, a)
}

// versionParts parses "v1.2.3" or "1.2.3-rc1" into [1 2 3]
func versionParts(tag string) ([]int, bool) {
	tag = strings.TrimPrefix(strings.TrimPrefix(tag, "v"), "V")
	if i := strings.IndexAny(tag, "-+"); i >= 0 {
		tag = tag[:i]
	}
	if tag == "" {
		return nil, false
	}

	fields := strings.Split(tag, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		parts = append(parts, n)
	}
	return parts, true
}

func containsProgramName(token string) bool {
	lower := strings.ToLower(token)
	for _, name := range programNames {
		if strings.Contains(lower, name) {
			return true
		}
	}
	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
