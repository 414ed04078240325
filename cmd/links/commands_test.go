package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LJTian/NewsAlert/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CONFIG_FILE", "")
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestImportListCountExport(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "processed_links.json")
	require.NoError(t, os.WriteFile(state, []byte(`["https://x/1"]`), 0o644))

	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`["https://x/3","https://x/1","https://x/2"]`), 0o644))

	out, err := runCmd(t, "--backend", "file", "--state-file", state, "import", in)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 new links, 3 total\n", out)

	out, err = runCmd(t, "--backend", "file", "--state-file", state, "count")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	out, err = runCmd(t, "--backend", "file", "--state-file", state, "list", "--limit", "2")
	require.NoError(t, err)
	assert.Equal(t, "https://x/1\nhttps://x/2\n", out)

	exported := filepath.Join(dir, "out.json")
	_, err = runCmd(t, "--backend", "file", "--state-file", state, "export", exported)
	require.NoError(t, err)
	links, err := storage.ReadLinksFile(exported)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/1", "https://x/2", "https://x/3"}, links)
}

func TestImportRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"nope":true}`), 0o644))

	_, err := runCmd(t, "--backend", "file", "--state-file", filepath.Join(dir, "state.json"), "import", bad)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "not a json string array"))
}

func TestBoltBackend(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	require.NoError(t, os.WriteFile(in, []byte(`["https://x/1","https://x/2"]`), 0o644))
	db := filepath.Join(dir, "links.db")

	_, err := runCmd(t, "--backend", "bolt", "--bolt-path", db, "import", in)
	require.NoError(t, err)

	out, err := runCmd(t, "--backend", "bolt", "--bolt-path", db, "count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = runCmd(t, "--backend", "bolt", "--bolt-path", db, "list", "--first-seen")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	for i, want := range []string{"https://x/1", "https://x/2"} {
		link, stamp, ok := strings.Cut(lines[i], "\t")
		require.True(t, ok, lines[i])
		assert.Equal(t, want, link)
		_, err := time.Parse(time.RFC3339, stamp)
		assert.NoError(t, err, stamp)
	}
}

func TestListFirstSeenNeedsBolt(t *testing.T) {
	dir := t.TempDir()
	_, err := runCmd(t, "--backend", "file", "--state-file", filepath.Join(dir, "state.json"), "list", "--first-seen")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bolt")
}
