// Package patchlog recovers generated patch listings from ilpatch logs.
//
// When a patch definition sets extra_logging, the engine logs the rewritten
// body as a "generated patch" record with target and listing attributes.
// Extract finds those records in slog text or JSON output, and
// WriteListings saves one listing file per target.
package patchlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/ilpatch/internal/engine"
)

// maxLineSize bounds a single log line. Listings of large method bodies are
// logged on one line.
const maxLineSize = 16 << 20

// Record is one generated patch recovered from a log.
type Record struct {
	Line    int    `json:"line"`
	Target  string `json:"target"`
	Listing string `json:"listing"`
}

// Extract scans r for generated patch records.
//
// Lines that are not generated patch records are ignored. A generated patch
// record missing its target or listing is logged at warn and skipped.
func Extract(r io.Reader, logger *slog.Logger) ([]Record, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	records := []Record{}
	n := 0
	for scanner.Scan() {
		n++
		attrs, ok := parseLine(scanner.Text())
		if !ok || attrs["msg"] != engine.GeneratedPatchMessage {
			continue
		}

		rec := Record{Line: n, Target: attrs["target"], Listing: attrs["listing"]}
		if rec.Target == "" || rec.Listing == "" {
			logger.Warn("generated patch record incomplete",
				"line", n,
				"has_target", rec.Target != "",
				"has_listing", rec.Listing != "",
			)
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan log: line %d: %w", n+1, err)
	}
	return records, nil
}

// parseLine decodes one slog record. JSON handler lines start with '{';
// everything else is read as text handler key=value pairs.
func parseLine(line string) (map[string]string, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, false
	}
	if strings.HasPrefix(line, "{") {
		return parseJSON(line)
	}
	return parseText(line)
}

func parseJSON(line string) (map[string]string, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, false
	}
	attrs := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			attrs[k] = s
		}
	}
	return attrs, true
}

// parseText reads key=value pairs as written by slog.TextHandler.
// Quoted values are Go string literals.
func parseText(line string) (map[string]string, bool) {
	attrs := make(map[string]string)
	rest := line
	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			return attrs, len(attrs) > 0
		}

		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsAny(rest[:eq], " \"") {
			return nil, false
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				return nil, false
			}
			value, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				return nil, false
			}
			attrs[key] = value
			rest = rest[end+1:]
			continue
		}

		end := strings.IndexByte(rest, ' ')
		if end < 0 {
			end = len(rest)
		}
		attrs[key] = rest[:end]
		rest = rest[end:]
	}
}

// closingQuote returns the index of the quote ending the literal that
// starts at s[0], or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
