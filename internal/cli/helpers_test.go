package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	repoPatches = "../../testdata/patches"
	repoBodies  = "../../testdata/bodies"
)

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// defsDir creates a directory holding one CUE file with the given patches.
func defsDir(t *testing.T, patches string) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "defs.cue", "package test\n\n"+patches)
	return dir
}
