package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dataclean/internal/config"
	"dataclean/internal/jobs"
)

func TestNewJobStore(t *testing.T) {
	t.Run("memory by default", func(t *testing.T) {
		store, err := newJobStore(config.JobsConfig{Store: "memory"})
		require.NoError(t, err)
		assert.IsType(t, &jobs.MemoryStore{}, store)
	})

	t.Run("sqlite when configured", func(t *testing.T) {
		store, err := newJobStore(config.JobsConfig{
			Store:      "sqlite",
			SQLitePath: t.TempDir() + "/jobs.db",
		})
		require.NoError(t, err)
		assert.IsType(t, &jobs.SQLiteStore{}, store)
	})

	t.Run("unknown store falls back to memory", func(t *testing.T) {
		store, err := newJobStore(config.JobsConfig{Store: ""})
		require.NoError(t, err)
		assert.IsType(t, &jobs.MemoryStore{}, store)
	})
}
