package core

import "sort"

// TrackStatus is the acquisition state of a single track.
type TrackStatus string

type SourceType string

const (
	// TrackStatusPending means a placeholder exists and no local file yet.
	TrackStatusPending     TrackStatus = "pending"
	TrackStatusDownloading TrackStatus = "downloading"
	TrackStatusCompleted   TrackStatus = "completed"
	// TrackStatusError is terminal but retryable.
	TrackStatusError TrackStatus = "error"

	SourceUpload     SourceType = "upload"
	SourceURLExtract SourceType = "url-extract"
	SourceMetaSearch SourceType = "metadata-search"
)

// Track is one entry of an album's ordered collection. Title stays pure
// display text; any status marker is derived at the read boundary.
type Track struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	TrackNumber int         `json:"track_number"`
	Filename    *string     `json:"filename"`
	Status      TrackStatus `json:"status"`
	SourceType  SourceType  `json:"source_type"`
	OriginalURL *string     `json:"original_url,omitempty"`
	ErrorMsg    *string     `json:"error_msg,omitempty"`
}

// CanTransition reports whether moving from s to next is a valid edge.
// Valid edges: pending->downloading, downloading->completed,
// downloading->error, and error->pending via explicit retry.
func (s TrackStatus) CanTransition(next TrackStatus) bool {
	switch s {
	case TrackStatusPending:
		return next == TrackStatusDownloading
	case TrackStatusDownloading:
		return next == TrackStatusCompleted || next == TrackStatusError
	case TrackStatusError:
		return next == TrackStatusPending
	default:
		return false
	}
}

// IsFinished returns true if the track is in a final state.
func (t *Track) IsFinished() bool {
	switch t.Status {
	case TrackStatusCompleted, TrackStatusError:
		return true
	default:
		return false
	}
}

func (t *Track) CloneTrack() *Track {
	if t == nil {
		return nil
	}
	c := *t
	c.Filename = copyString(t.Filename)
	c.OriginalURL = copyString(t.OriginalURL)
	c.ErrorMsg = copyString(t.ErrorMsg)
	return &c
}

// RenumberInsert appends nt and stably re-sorts by track_number.
// Numbers need not be contiguous or unique; ties keep insertion order.
func RenumberInsert(tracks []*Track, nt *Track) []*Track {
	res := append(append([]*Track(nil), tracks...), nt)
	ResyncAfterEdit(res)
	return res
}

// ResyncAfterEdit re-sorts tracks in place after a manual track_number
// change. The sort must be stable so equal numbers keep prior order.
func ResyncAfterEdit(tracks []*Track) {
	sort.SliceStable(tracks, func(i, j int) bool {
		return tracks[i].TrackNumber < tracks[j].TrackNumber
	})
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// StringPtr is a small helper for nullable track fields.
func StringPtr(s string) *string {
	return &s
}
