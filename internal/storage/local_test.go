package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := NewLocalStore(t.TempDir(), "http://localhost:8080/files/")
	require.NoError(t, err)
	return store
}

func TestLocalStorePutAndOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	url, err := store.Put(ctx, "stories/abc/audio/scene_1_line_1.mp3", []byte("first"), "audio/mpeg")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/files/stories/abc/audio/scene_1_line_1.mp3", url)

	_, err = store.Put(ctx, "stories/abc/audio/scene_1_line_1.mp3", []byte("second"), "audio/mpeg")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(store.basePath, "stories", "abc", "audio", "scene_1_line_1.mp3"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStoreDeleteByKeyMissingIsOK(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.DeleteByKey(context.Background(), "stories/none/audio/scene_9_line_9.mp3"))
}

func TestLocalStoreDeleteByPrefix(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keys := []string{
		"stories/abc/audio/scene_1_line_1.mp3",
		"stories/abc/audio/scene_1_line_2.mp3",
		"stories/abc/audio/scene_2_line_1.mp3",
		"stories/other/audio/scene_1_line_1.mp3",
	}
	for _, key := range keys {
		_, err := store.Put(ctx, key, []byte("x"), "audio/mpeg")
		require.NoError(t, err)
	}

	deleted, err := store.DeleteByPrefix(ctx, "stories/abc/")
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	// The other story's blobs are untouched.
	_, err = os.Stat(filepath.Join(store.basePath, "stories", "other", "audio", "scene_1_line_1.mp3"))
	assert.NoError(t, err)
}

func TestLocalStoreDeleteByPrefixMissingIsEmpty(t *testing.T) {
	store := newTestStore(t)
	deleted, err := store.DeleteByPrefix(context.Background(), "stories/never-created/")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "../outside.mp3", []byte("x"), "audio/mpeg")
	assert.Error(t, err)

	_, err = store.Put(ctx, "/etc/passwd", []byte("x"), "audio/mpeg")
	assert.Error(t, err)

	assert.Error(t, store.DeleteByKey(ctx, "../outside.mp3"))
}
