package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenumberInsertKeepsStableOrder(t *testing.T) {
	t.Parallel()

	tracks := []*Track{
		{ID: "a", TrackNumber: 1},
		{ID: "b", TrackNumber: 3},
		{ID: "c", TrackNumber: 3},
		{ID: "d", TrackNumber: 7},
	}

	got := RenumberInsert(tracks, &Track{ID: "e", TrackNumber: 3})

	ids := make([]string, 0, len(got))
	for _, tr := range got {
		ids = append(ids, tr.ID)
	}
	// new equal-numbered track lands after prior ties
	require.Equal(t, []string{"a", "b", "c", "e", "d"}, ids)

	// input slice untouched
	require.Len(t, tracks, 4)
	require.Equal(t, "a", tracks[0].ID)
}

func TestRenumberInsertNonContiguous(t *testing.T) {
	t.Parallel()

	got := RenumberInsert(nil, &Track{ID: "only", TrackNumber: 42})
	require.Len(t, got, 1)

	got = RenumberInsert(got, &Track{ID: "front", TrackNumber: 0})
	require.Equal(t, "front", got[0].ID)
	require.Equal(t, "only", got[1].ID)
}

func TestResyncAfterEditStable(t *testing.T) {
	t.Parallel()

	tracks := []*Track{
		{ID: "x", TrackNumber: 5},
		{ID: "y", TrackNumber: 2},
		{ID: "z", TrackNumber: 2},
	}
	ResyncAfterEdit(tracks)

	require.Equal(t, "y", tracks[0].ID)
	require.Equal(t, "z", tracks[1].ID)
	require.Equal(t, "x", tracks[2].ID)
}

func TestTrackStatusTransitions(t *testing.T) {
	t.Parallel()

	valid := []struct {
		from, to TrackStatus
	}{
		{TrackStatusPending, TrackStatusDownloading},
		{TrackStatusDownloading, TrackStatusCompleted},
		{TrackStatusDownloading, TrackStatusError},
		{TrackStatusError, TrackStatusPending},
	}
	for _, tc := range valid {
		require.Truef(t, tc.from.CanTransition(tc.to), "%s -> %s should be valid", tc.from, tc.to)
	}

	all := []TrackStatus{
		TrackStatusPending, TrackStatusDownloading,
		TrackStatusCompleted, TrackStatusError,
	}
	validSet := map[[2]TrackStatus]bool{}
	for _, tc := range valid {
		validSet[[2]TrackStatus{tc.from, tc.to}] = true
	}
	for _, from := range all {
		for _, to := range all {
			if validSet[[2]TrackStatus{from, to}] {
				continue
			}
			require.Falsef(t, from.CanTransition(to), "%s -> %s should be invalid", from, to)
		}
	}
}

func TestCloneTrackDeepCopiesNullableFields(t *testing.T) {
	t.Parallel()

	orig := &Track{
		ID:          "t1",
		Title:       "Song",
		TrackNumber: 1,
		Filename:    StringPtr("abc.mp3"),
		Status:      TrackStatusCompleted,
		SourceType:  SourceURLExtract,
		OriginalURL: StringPtr("https://example.com/v"),
	}
	clone := orig.CloneTrack()

	*clone.Filename = "other.mp3"
	clone.OriginalURL = nil

	require.Equal(t, "abc.mp3", *orig.Filename)
	require.NotNil(t, orig.OriginalURL)
}
