package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/LJTian/NewsAlert/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSelectsBackend(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(ctx, &config.Config{StateFile: filepath.Join(dir, "state.json")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(ctx, &config.Config{StoreBackend: "BOLT", BoltPath: filepath.Join(dir, "links.db")}, nil)
	require.NoError(t, err)
	assert.IsType(t, &BoltStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, &config.Config{StoreBackend: "mongo"}, nil)
	assert.ErrorContains(t, err, "unknown store backend")
}
