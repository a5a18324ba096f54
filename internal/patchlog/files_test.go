package patchlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Game.Player::Update", "Game.Player__Update"},
		{`a<b>c"d/e\f|g?h*i`, "a_b_c_d_e_f_g_h_i"},
		{"Generic(int, string)", "Generic(int_ string)"},
		{" .hidden. ", "hidden"},
		{"tab\there", "tab_here"},
		{"...", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeFileName(tt.in), "SanitizeFileName(%q)", tt.in)
	}
}

func TestSanitizeFileName_Truncates(t *testing.T) {
	long := strings.Repeat("a", 199) + ". " + strings.Repeat("b", 50)
	got := SanitizeFileName(long)
	assert.Equal(t, strings.Repeat("a", 199), got)
}

func TestListingFileName(t *testing.T) {
	assert.Equal(t, "T__M.il", ListingFileName("T::M"))
	assert.Equal(t, "", ListingFileName(" . "))
}

func TestWriteListings(t *testing.T) {
	outDir := filepath.Join(t.TempDir(), "out")
	records := []Record{
		{Line: 3, Target: "T::M", Listing: "nop"},
		{Line: 9, Target: "...", Listing: "ret"},
		{Line: 12, Target: "T::M", Listing: "nop\nret\n"},
	}

	written, err := WriteListings(records, outDir)
	require.NoError(t, err)
	require.Len(t, written, 3)

	assert.Equal(t, filepath.Join(outDir, "T__M.il"), written[0].Path)
	assert.Equal(t, filepath.Join(outDir, "unnamed_method_001.il"), written[1].Path)
	assert.Equal(t, written[0].Path, written[2].Path)

	// later record for the same target wins
	data, err := os.ReadFile(written[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "# target: T::M\n# log line: 12\nnop\nret\n", string(data))
}

func TestDefaultOutputDir(t *testing.T) {
	assert.Equal(t, "patches_v2.5.1", DefaultOutputDir("/logs/output_log_v2.5.1_client.txt", "patches"))
	assert.Equal(t, "patches_run", DefaultOutputDir("run.log", "patches"))
	assert.Equal(t, "patches", DefaultOutputDir("....log", "patches"))
}
