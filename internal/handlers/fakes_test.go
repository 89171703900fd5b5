package handlers

import (
	"context"
	"sync"
	"time"

	"travellog/internal/codec"
	"travellog/internal/database"
)

// fakeCodec counts calls and delegates to function fields when set.
type fakeCodec struct {
	mu             sync.Mutex
	processCalls   int
	thumbnailCalls int

	ProcessFunc   func(in codec.Input) (*codec.Result, error)
	ThumbnailFunc func(data []byte) ([]byte, error)
}

func (f *fakeCodec) Process(in codec.Input) (*codec.Result, error) {
	f.mu.Lock()
	f.processCalls++
	f.mu.Unlock()
	if f.ProcessFunc != nil {
		return f.ProcessFunc(in)
	}
	return &codec.Result{
		Primary:     []byte("compressed:" + string(in.Data)),
		PrimaryType: "image/jpeg",
		Thumbnail:   []byte("thumb"),
		Width:       800,
		Height:      600,
		Compressed:  true,
	}, nil
}

func (f *fakeCodec) Thumbnail(data []byte) ([]byte, error) {
	f.mu.Lock()
	f.thumbnailCalls++
	f.mu.Unlock()
	if f.ThumbnailFunc != nil {
		return f.ThumbnailFunc(data)
	}
	return []byte("derived-thumb"), nil
}

func (f *fakeCodec) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.processCalls, f.thumbnailCalls
}

type storedLocation struct {
	loc   database.Location
	image database.ImagePayload
	thumb []byte
}

// fakeStore is an in-memory LocationStore. Err, when set, fails every call.
type fakeStore struct {
	mu            sync.Mutex
	nextID        int64
	rows          map[int64]*storedLocation
	Err           error
	setThumbCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[int64]*storedLocation)}
}

func (s *fakeStore) Create(_ context.Context, in database.NewLocation) (*database.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	s.nextID++
	imageType := in.ImageType
	loc := database.Location{
		ID:          s.nextID,
		Title:       in.Title,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		ImageType:   &imageType,
		ImageSize:   int64(len(in.Image)),
		CreatedAt:   time.Now(),
	}
	s.rows[loc.ID] = &storedLocation{
		loc:   loc,
		image: database.ImagePayload{Data: in.Image, MimeType: in.ImageType},
		thumb: in.Thumbnail,
	}
	return &loc, nil
}

func (s *fakeStore) GetByID(_ context.Context, id int64) (*database.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	loc := row.loc
	return &loc, nil
}

func (s *fakeStore) List(_ context.Context) ([]database.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]database.Location, 0, len(s.rows))
	for id := s.nextID; id > 0; id-- {
		if row, ok := s.rows[id]; ok {
			out = append(out, row.loc)
		}
	}
	return out, nil
}

func (s *fakeStore) Update(_ context.Context, id int64, in database.LocationUpdate) (*database.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	row.loc.Title = in.Title
	row.loc.Latitude = in.Latitude
	row.loc.Longitude = in.Longitude
	row.loc.Description = in.Description
	loc := row.loc
	return &loc, nil
}

func (s *fakeStore) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return false, s.Err
	}
	if _, ok := s.rows[id]; !ok {
		return false, nil
	}
	delete(s.rows, id)
	return true, nil
}

func (s *fakeStore) GetImage(_ context.Context, id int64) (*database.ImagePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	img := row.image
	return &img, nil
}

func (s *fakeStore) GetThumbnail(_ context.Context, id int64) (*database.ImagePayload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	if len(row.thumb) == 0 {
		return nil, database.ErrNoThumbnail
	}
	return &database.ImagePayload{Data: row.thumb, MimeType: "image/jpeg"}, nil
}

func (s *fakeStore) SetThumbnail(_ context.Context, id int64, thumb []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setThumbCalls++
	if s.Err != nil {
		return s.Err
	}
	row, ok := s.rows[id]
	if !ok {
		return database.ErrNotFound
	}
	row.thumb = thumb
	return nil
}
