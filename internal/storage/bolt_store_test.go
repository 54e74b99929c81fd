package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/storage"
)

func TestBoltStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	st, err := storage.NewBoltStore(path)
	require.NoError(t, err)

	album := testAlbum()
	require.NoError(t, st.PutAlbum(ctx, album))
	require.NoError(t, st.PutArtist(ctx, &core.Artist{ID: "art1", Name: "Simon"}))
	require.NoError(t, st.PutIndex(ctx, core.Index{{ID: "art1", Name: "Simon", AlbumCount: 1}}))

	got, err := st.GetAlbum(ctx, "alb1")
	require.NoError(t, err)
	require.Equal(t, "t1", got.Tracks[0].ID)
	require.Equal(t, core.TrackStatusCompleted, got.Tracks[0].Status)

	require.NoError(t, st.Close())

	// reopen and confirm durability
	st2, err := storage.NewBoltStore(path)
	require.NoError(t, err)
	defer st2.Close()

	again, err := st2.GetAlbum(ctx, "alb1")
	require.NoError(t, err)
	require.Equal(t, got, again)

	idx, err := st2.GetIndex(ctx)
	require.NoError(t, err)
	require.Len(t, idx, 1)
}

func TestBoltStoreNotFoundAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	st, err := storage.NewBoltStore(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.GetArtist(ctx, "ghost")
	require.True(t, core.IsNotFound(err))

	require.NoError(t, st.PutAlbum(ctx, testAlbum()))
	require.NoError(t, st.DeleteAlbum(ctx, "alb1"))
	_, err = st.GetAlbum(ctx, "alb1")
	require.True(t, core.IsNotFound(err))

	idx, err := st.GetIndex(ctx)
	require.NoError(t, err)
	require.Empty(t, idx)
}
