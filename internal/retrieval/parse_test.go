package retrieval

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestExtractPathListStrict(t *testing.T) {
	paths := ExtractPathList(`["README.md", "src/main.go"]`)
	if diff := cmp.Diff([]string{"README.md", "src/main.go"}, paths); diff != "" {
		t.Errorf("path list mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractPathListFenced(t *testing.T) {
	reply := "Sure, here are the files:\n```json\n[\"README.md\", \"go.mod\"]\n```\nLet me know."
	require.Equal(t, []string{"README.md", "go.mod"}, ExtractPathList(reply))
}

func TestExtractPathListProseWrapped(t *testing.T) {
	reply := `I would like to read ["docs/design.md"] next.`
	require.Equal(t, []string{"docs/design.md"}, ExtractPathList(reply))
}

func TestExtractPathListFiltersNonStrings(t *testing.T) {
	paths := ExtractPathList(`["a.go", 42, null, "  ", "b.go"]`)
	require.Equal(t, []string{"a.go", "b.go"}, paths)
}

func TestExtractPathListBracketInsideString(t *testing.T) {
	paths := ExtractPathList(`["file[1].go", "b.go"]`)
	require.Equal(t, []string{"file[1].go", "b.go"}, paths)
}

func TestExtractPathListEmpty(t *testing.T) {
	require.Empty(t, ExtractPathList(`[]`))
	require.Empty(t, ExtractPathList("I have everything I need."))
	require.Empty(t, ExtractPathList(""))
	require.Empty(t, ExtractPathList(`{"files": true}`))
	require.Empty(t, ExtractPathList(`[unclosed`))
}
