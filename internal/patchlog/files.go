package patchlog

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// ListingExt is the extension of listing files read and written by ilpatch.
const ListingExt = ".il"

// maxFileNameLen keeps generated names well inside filesystem path limits.
const maxFileNameLen = 200

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f,]`)
	versionRe        = regexp.MustCompile(`_(v\d+\.\d+\.\d+)_`)
)

// SanitizeFileName maps a target name to a portable file name stem.
//
// Characters invalid on common filesystems become '_', leading and trailing
// spaces and dots are dropped, and the result is cut to 200 bytes.
// Returns "" when nothing usable remains.
func SanitizeFileName(name string) string {
	s := invalidFileChars.ReplaceAllString(name, "_")
	s = strings.Trim(s, " .")
	if len(s) > maxFileNameLen {
		s = s[:maxFileNameLen]
	}
	return strings.TrimRight(s, " .")
}

// ListingFileName returns the listing file name for a target, or "" when
// the target has no usable characters.
func ListingFileName(target string) string {
	stem := SanitizeFileName(target)
	if stem == "" {
		return ""
	}
	return stem + ListingExt
}

// Written describes one listing file produced by WriteListings.
type Written struct {
	Target string `json:"target"`
	Line   int    `json:"line"`
	Path   string `json:"path"`
}

// WriteListings writes one listing file per record into outDir, creating it
// if needed.
//
// Records are written in order, so when a log holds several generated
// patches for the same target the last one wins. Targets that sanitize to
// nothing get unnamed_method_NNN names.
func WriteListings(records []Record, outDir string) ([]Written, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	written := make([]Written, 0, len(records))
	unnamed := 0
	for _, rec := range records {
		name := ListingFileName(rec.Target)
		if name == "" {
			unnamed++
			name = fmt.Sprintf("unnamed_method_%03d%s", unnamed, ListingExt)
		}

		path := filepath.Join(outDir, name)
		if err := os.WriteFile(path, []byte(renderListing(rec)), 0o644); err != nil {
			return written, fmt.Errorf("write listing for %s: %w", rec.Target, err)
		}
		written = append(written, Written{Target: rec.Target, Line: rec.Line, Path: path})
	}
	return written, nil
}

func renderListing(rec Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# target: %s\n", rec.Target)
	fmt.Fprintf(&b, "# log line: %d\n", rec.Line)
	b.WriteString(rec.Listing)
	if !strings.HasSuffix(rec.Listing, "\n") {
		b.WriteByte('\n')
	}
	return b.String()
}

// DefaultOutputDir derives an output directory from a log file name.
// A "_vX.Y.Z_" version tag in the name yields "<prefix>_vX.Y.Z"; otherwise
// the log's base name is used.
func DefaultOutputDir(logPath, prefix string) string {
	base := filepath.Base(logPath)
	if m := versionRe.FindStringSubmatch(base); m != nil {
		return prefix + "_" + m[1]
	}
	stem := SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" {
		return prefix
	}
	return prefix + "_" + stem
}
