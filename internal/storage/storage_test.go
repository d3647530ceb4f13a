package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realthrust/extension/internal/config"
	"github.com/realthrust/extension/internal/storage"
	"github.com/realthrust/extension/internal/storage/gormstore"
	"github.com/realthrust/extension/internal/storage/memory"
)

// Compile-time interface checks
var (
	_ storage.Backend = (*memory.Backend)(nil)
	_ storage.Querier = (*memory.Backend)(nil)
	_ storage.Backend = (*gormstore.Backend)(nil)
	_ storage.Querier = (*gormstore.Backend)(nil)
)

func TestNewBackend_Memory(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "memory",
		Memory: config.MemoryConfig{Capacity: 5},
	}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
}

func TestNewBackend_SQLite(t *testing.T) {
	b, err := storage.NewBackend(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "rt.db")},
	}, zerolog.Nop())
	require.NoError(t, err)
	require.IsType(t, &gormstore.Backend{}, b)
	require.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestNewBackend_None(t *testing.T) {
	for _, typ := range []string{"none", ""} {
		b, err := storage.NewBackend(config.StorageConfig{Type: typ}, zerolog.Nop())
		require.NoError(t, err)
		assert.Nil(t, b)
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := storage.NewBackend(config.StorageConfig{Type: "mongo"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown storage type")
}
