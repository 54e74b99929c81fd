package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/core"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/media"
	"github.com/yuki-appdevorg/Music-Server-SpotifySupport/internal/storage"
)

// Service is the catalog CRUD surface: plain record mutation over the
// store. Acquisition jobs mutate albums through the store directly;
// this service owns index maintenance and cascade rules.
type Service struct {
	store  storage.Store
	lib    *media.Library
	idGen  IDGenerator
	logger *zap.Logger
}

func NewService(store storage.Store, lib *media.Library, idGen IDGenerator, logger *zap.Logger) (*Service, error) {
	const op = "catalog.NewService"
	if store == nil {
		return nil, core.NewInternalError("catalog store required", nil, op)
	}
	if lib == nil {
		return nil, core.NewInternalError("media library required", nil, op)
	}
	if idGen == nil {
		idGen = RandomIDGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, lib: lib, idGen: idGen, logger: logger}, nil
}

type ArtistParams struct {
	Name        string
	Genre       string
	Description string
	// Image is an opaque filename from the media library; empty keeps
	// the current one on update.
	Image string
}

type AlbumParams struct {
	Title      string
	Year       string
	Type       string
	CoverImage string
}

// ListArtists returns the denormalized index projection.
func (s *Service) ListArtists(ctx context.Context) (core.Index, error) {
	const op = "catalog.Service.ListArtists"
	idx, err := s.store.GetIndex(ctx)
	if err != nil {
		return nil, wrapErr(err, op, "load index")
	}
	return idx, nil
}

func (s *Service) GetArtist(ctx context.Context, id string) (*core.Artist, error) {
	const op = "catalog.Service.GetArtist"
	artist, err := s.store.GetArtist(ctx, id)
	if err != nil {
		return nil, wrapErr(err, op, "load artist")
	}
	return artist, nil
}

func (s *Service) CreateArtist(ctx context.Context, p ArtistParams) (*core.Artist, error) {
	const op = "catalog.Service.CreateArtist"
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return nil, core.NewValidationError("artist name required", nil, op)
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return nil, core.NewInternalError("gen id", err, op)
	}
	artist := &core.Artist{
		ID:          id,
		Name:        name,
		Genre:       p.Genre,
		Description: p.Description,
		Image:       p.Image,
		Albums:      []*core.AlbumRef{},
	}
	if err := s.saveArtist(ctx, artist); err != nil {
		return nil, wrapErr(err, op, "save artist")
	}
	s.logger.Info("artist created", zap.String("artist_id", id), zap.String("name", name))
	return artist, nil
}

func (s *Service) UpdateArtist(ctx context.Context, id string, p ArtistParams) (*core.Artist, error) {
	const op = "catalog.Service.UpdateArtist"
	artist, err := s.store.GetArtist(ctx, id)
	if err != nil {
		return nil, wrapErr(err, op, "load artist")
	}
	if name := strings.TrimSpace(p.Name); name != "" {
		artist.Name = name
	}
	artist.Genre = p.Genre
	artist.Description = p.Description
	if p.Image != "" {
		artist.Image = p.Image
	}
	if err := s.saveArtist(ctx, artist); err != nil {
		return nil, wrapErr(err, op, "save artist")
	}
	return artist, nil
}

// DeleteArtist cascades: every owned album record goes with it, and
// the index entry is pruned.
func (s *Service) DeleteArtist(ctx context.Context, id string) error {
	const op = "catalog.Service.DeleteArtist"
	artist, err := s.store.GetArtist(ctx, id)
	if err != nil && !core.IsNotFound(err) {
		return wrapErr(err, op, "load artist")
	}
	if artist != nil {
		for _, ref := range artist.Albums {
			if ref == nil {
				continue
			}
			if err := s.store.DeleteAlbum(ctx, ref.ID); err != nil {
				return wrapErr(err, op, "cascade album delete")
			}
		}
		if err := s.store.DeleteArtist(ctx, id); err != nil {
			return wrapErr(err, op, "delete artist")
		}
	}
	idx, err := s.store.GetIndex(ctx)
	if err != nil {
		return wrapErr(err, op, "load index")
	}
	if err := s.store.PutIndex(ctx, idx.Remove(id)); err != nil {
		return wrapErr(err, op, "save index")
	}
	s.logger.Info("artist deleted", zap.String("artist_id", id))
	return nil
}

func (s *Service) GetAlbum(ctx context.Context, id string) (*core.Album, error) {
	const op = "catalog.Service.GetAlbum"
	album, err := s.store.GetAlbum(ctx, id)
	if err != nil {
		return nil, wrapErr(err, op, "load album")
	}
	return album, nil
}

func (s *Service) CreateAlbum(ctx context.Context, artistID string, p AlbumParams) (*core.Album, error) {
	const op = "catalog.Service.CreateAlbum"
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, core.NewValidationError("album title required", nil, op)
	}
	artist, err := s.store.GetArtist(ctx, artistID)
	if err != nil {
		return nil, wrapErr(err, op, "load artist")
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return nil, core.NewInternalError("gen id", err, op)
	}
	albumType := p.Type
	if albumType == "" {
		albumType = "Album"
	}

	artist.Albums = append(artist.Albums, &core.AlbumRef{
		ID: id, Title: title, Year: p.Year, Type: albumType, CoverImage: p.CoverImage,
	})
	if err := s.saveArtist(ctx, artist); err != nil {
		return nil, wrapErr(err, op, "save artist")
	}

	album := &core.Album{
		ID:         id,
		ArtistID:   artistID,
		ArtistName: artist.Name,
		Title:      title,
		Year:       p.Year,
		Type:       albumType,
		CoverImage: p.CoverImage,
		Tracks:     []*core.Track{},
	}
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return nil, wrapErr(err, op, "save album")
	}
	s.logger.Info("album created",
		zap.String("album_id", id), zap.String("artist_id", artistID))
	return album, nil
}

func (s *Service) UpdateAlbum(ctx context.Context, albumID string, p AlbumParams) (*core.Album, error) {
	const op = "catalog.Service.UpdateAlbum"
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, wrapErr(err, op, "load album")
	}
	if title := strings.TrimSpace(p.Title); title != "" {
		album.Title = title
	}
	album.Year = p.Year
	if p.Type != "" {
		album.Type = p.Type
	}
	if p.CoverImage != "" {
		album.CoverImage = p.CoverImage
	}

	// keep the artist's denormalized entry in sync
	artist, err := s.store.GetArtist(ctx, album.ArtistID)
	if err != nil && !core.IsNotFound(err) {
		return nil, wrapErr(err, op, "load artist")
	}
	if artist != nil {
		if ref := artist.FindAlbumRef(albumID); ref != nil {
			ref.Title = album.Title
			ref.Year = album.Year
			ref.Type = album.Type
			ref.CoverImage = album.CoverImage
		}
		if err := s.saveArtist(ctx, artist); err != nil {
			return nil, wrapErr(err, op, "save artist")
		}
	}

	if err := s.store.PutAlbum(ctx, album); err != nil {
		return nil, wrapErr(err, op, "save album")
	}
	return album, nil
}

func (s *Service) DeleteAlbum(ctx context.Context, albumID string) error {
	const op = "catalog.Service.DeleteAlbum"
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil && !core.IsNotFound(err) {
		return wrapErr(err, op, "load album")
	}
	if err := s.store.DeleteAlbum(ctx, albumID); err != nil {
		return wrapErr(err, op, "delete album")
	}
	if album == nil {
		return nil
	}
	artist, err := s.store.GetArtist(ctx, album.ArtistID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil
		}
		return wrapErr(err, op, "load artist")
	}
	artist.RemoveAlbumRef(albumID)
	if err := s.saveArtist(ctx, artist); err != nil {
		return wrapErr(err, op, "save artist")
	}
	return nil
}

// AddUploadTrack records an already-normalized audio file as a
// completed track. filename is the opaque name returned by the
// transcoder import.
func (s *Service) AddUploadTrack(ctx context.Context, albumID, title string, trackNumber int, filename string) (*core.Track, error) {
	const op = "catalog.Service.AddUploadTrack"
	if filename == "" {
		return nil, core.NewValidationError("audio filename required", nil, op)
	}
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, wrapErr(err, op, "load album")
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return nil, core.NewInternalError("gen id", err, op)
	}
	if trackNumber <= 0 {
		trackNumber = album.NextTrackNumber()
	}
	if strings.TrimSpace(title) == "" {
		title = filename
	}
	track := &core.Track{
		ID:          id,
		Title:       title,
		TrackNumber: trackNumber,
		Filename:    core.StringPtr(filename),
		Status:      core.TrackStatusCompleted,
		SourceType:  core.SourceUpload,
	}
	album.Tracks = core.RenumberInsert(album.Tracks, track)
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return nil, wrapErr(err, op, "save album")
	}
	return track.CloneTrack(), nil
}

// AddURLTrack creates the initial pending placeholder for a URL
// acquisition. The caller starts the background job with the returned
// track's id as the placeholder to replace.
func (s *Service) AddURLTrack(ctx context.Context, albumID, url string, source core.SourceType, trackNumber int) (*core.Track, error) {
	const op = "catalog.Service.AddURLTrack"
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, core.NewValidationError("source url required", nil, op)
	}
	switch source {
	case core.SourceURLExtract, core.SourceMetaSearch:
	default:
		return nil, core.NewValidationError("unknown source type", nil, op)
	}
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, wrapErr(err, op, "load album")
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return nil, core.NewInternalError("gen id", err, op)
	}
	if trackNumber <= 0 {
		trackNumber = album.NextTrackNumber()
	}
	track := &core.Track{
		ID:          id,
		Title:       "Initializing...",
		TrackNumber: trackNumber,
		Status:      core.TrackStatusPending,
		SourceType:  source,
		OriginalURL: core.StringPtr(url),
	}
	album.Tracks = core.RenumberInsert(album.Tracks, track)
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return nil, wrapErr(err, op, "save album")
	}
	return track.CloneTrack(), nil
}

func (s *Service) UpdateTrack(ctx context.Context, albumID, trackID, title string, trackNumber int) (*core.Track, error) {
	const op = "catalog.Service.UpdateTrack"
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, wrapErr(err, op, "load album")
	}
	track := album.FindTrack(trackID)
	if track == nil {
		return nil, core.NewNotFoundError(core.KindTrack, trackID, op)
	}
	if title := strings.TrimSpace(title); title != "" {
		track.Title = title
	}
	if trackNumber > 0 {
		track.TrackNumber = trackNumber
	}
	core.ResyncAfterEdit(album.Tracks)
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return nil, wrapErr(err, op, "save album")
	}
	return track.CloneTrack(), nil
}

// DeleteTrack removes the record and its backing audio file.
func (s *Service) DeleteTrack(ctx context.Context, albumID, trackID string) error {
	const op = "catalog.Service.DeleteTrack"
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return wrapErr(err, op, "load album")
	}
	track := album.FindTrack(trackID)
	if track == nil {
		return core.NewNotFoundError(core.KindTrack, trackID, op)
	}
	if track.Filename != nil {
		if err := s.lib.RemoveAudio(*track.Filename); err != nil {
			s.logger.Warn("cant remove audio file",
				zap.String("track_id", trackID), zap.Error(err))
		}
	}
	album.RemoveTrack(trackID)
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return wrapErr(err, op, "save album")
	}
	return nil
}

// ForceTrackError is the operator path for a track stuck in
// downloading after an unreported crash: it forces status back to
// error so the track becomes retryable.
func (s *Service) ForceTrackError(ctx context.Context, albumID, trackID, msg string) (*core.Track, error) {
	const op = "catalog.Service.ForceTrackError"
	album, err := s.store.GetAlbum(ctx, albumID)
	if err != nil {
		return nil, wrapErr(err, op, "load album")
	}
	track := album.FindTrack(trackID)
	if track == nil {
		return nil, core.NewNotFoundError(core.KindTrack, trackID, op)
	}
	if track.Status != core.TrackStatusDownloading {
		return nil, core.NewValidationError("track is not stuck in downloading", nil, op)
	}
	if strings.TrimSpace(msg) == "" {
		msg = "manually marked as failed"
	}
	track.Status = core.TrackStatusError
	track.ErrorMsg = core.StringPtr(msg)
	track.Filename = nil
	if err := s.store.PutAlbum(ctx, album); err != nil {
		return nil, wrapErr(err, op, "save album")
	}
	return track.CloneTrack(), nil
}

// saveArtist persists the record and rebuilds its index entry; the
// index is always re-derived from the artist record, never trusted.
func (s *Service) saveArtist(ctx context.Context, artist *core.Artist) error {
	if err := s.store.PutArtist(ctx, artist); err != nil {
		return err
	}
	idx, err := s.store.GetIndex(ctx)
	if err != nil {
		return err
	}
	return s.store.PutIndex(ctx, idx.Upsert(artist.Summarize()))
}

func wrapErr(err error, op, msg string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := core.AsAppError(err); ok {
		return appErr.WithOper(op)
	}
	return core.NewInternalError(msg, err, op)
}
