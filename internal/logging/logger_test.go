package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func initWithConfig(t *testing.T, configJSON string) string {
	t.Helper()
	dir := t.TempDir()
	if configJSON != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(configJSON), 0o644))
	}
	require.NoError(t, Initialize(dir))
	t.Cleanup(CloseAll)
	return dir
}

func readCategoryLog(t *testing.T, dir string, c Category) string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(dir, "logs"))
	require.NoError(t, err)
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), "_"+string(c)+".log") {
			data, err := os.ReadFile(filepath.Join(dir, "logs", e.Name()))
			require.NoError(t, err)
			return string(data)
		}
	}
	return ""
}

func TestDebugModeWritesCategoryFiles(t *testing.T) {
	dir := initWithConfig(t, `{"logging": {"level": "debug", "debug_mode": true}}`)

	Fetch("cloning %s", "owner/repo")
	RetrievalDebug("round %d", 2)

	require.Contains(t, readCategoryLog(t, dir, CategoryFetch), "cloning owner/repo")
	require.Contains(t, readCategoryLog(t, dir, CategoryRetrieval), "round 2")
}

func TestProductionModeWritesNothing(t *testing.T) {
	dir := initWithConfig(t, "")
	require.False(t, IsDebugMode())

	Ingest("should not appear")
	require.Empty(t, readCategoryLog(t, dir, CategoryIngest))
}

func TestCategoryToggle(t *testing.T) {
	dir := initWithConfig(t, `{"logging": {
		"level": "debug",
		"debug_mode": true,
		"categories": {"fetch": false}
	}}`)

	require.False(t, IsCategoryEnabled(CategoryFetch))
	require.True(t, IsCategoryEnabled(CategoryTask))

	Fetch("suppressed")
	Task("recorded")
	require.Empty(t, readCategoryLog(t, dir, CategoryFetch))
	require.Contains(t, readCategoryLog(t, dir, CategoryTask), "recorded")
}

func TestLevelFiltersDebug(t *testing.T) {
	dir := initWithConfig(t, `{"logging": {"level": "info", "debug_mode": true}}`)

	StoreDebug("too detailed")
	Store("kept")

	content := readCategoryLog(t, dir, CategoryStore)
	require.NotContains(t, content, "too detailed")
	require.Contains(t, content, "kept")
}

func TestReloadConfigPicksUpChanges(t *testing.T) {
	dir := initWithConfig(t, "")
	require.False(t, IsDebugMode())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"logging": {"level": "debug", "debug_mode": true}}`), 0o644))
	require.NoError(t, ReloadConfig())
	require.True(t, IsDebugMode())
}

func TestUninitializedLoggingIsNoop(t *testing.T) {
	// Must not panic or create files when Initialize was never called.
	prev := logsDir
	logsDir = ""
	defer func() { logsDir = prev }()

	Generate("nothing happens")
	GenerateDebug("nothing happens")
}

func TestRecordAndReadTaskEvents(t *testing.T) {
	initWithConfig(t, "")

	RecordEvent(Event{Type: EventTaskCreated, TaskID: "t1", Message: "owner/repo"})
	RecordEvent(Event{Type: EventTaskStarted, TaskID: "t1"})
	RecordEvent(Event{Type: EventTaskStarted, TaskID: "t2"})
	RecordEvent(Event{Type: EventTaskFailed, TaskID: "t1", Error: "boom"})

	events := TaskEvents("t1")
	require.Len(t, events, 3)
	require.Equal(t, EventTaskCreated, events[0].Type)
	require.Equal(t, "owner/repo", events[0].Message)
	require.Equal(t, EventTaskFailed, events[2].Type)
	require.Equal(t, "boom", events[2].Error)
	require.NotZero(t, events[0].Timestamp)

	require.Empty(t, TaskEvents("unknown"))
}
