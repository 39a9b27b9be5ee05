package cart

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileStorage(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "foodshop")
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	var out map[string]string
	assert.ErrorIs(t, s.Load("missing", &out), ErrNotFound)

	require.NoError(t, s.Save("session", map[string]string{"token": "abc"}))
	require.NoError(t, s.Load("session", &out))
	assert.Equal(t, "abc", out["token"])

	require.NoError(t, s.Remove("session"))
	require.NoError(t, s.Remove("session"))
	assert.ErrorIs(t, s.Load("session", &out), ErrNotFound)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestFileStorage_CartLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStorage(dir)
	require.NoError(t, err)

	c, err := New(s, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.AddItem(burger, 2))

	raw, err := os.ReadFile(filepath.Join(dir, StorageKey+".json"))
	require.NoError(t, err)

	var entries []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	for _, key := range []string{"id", "productId", "name", "price", "image", "quantity"} {
		assert.Contains(t, entries[0], key)
	}

	reloaded, err := New(s, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, c.Items(), reloaded.Items())
}
