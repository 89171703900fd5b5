package database

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound     = errors.New("location not found")
	ErrNoThumbnail  = errors.New("thumbnail not available")
	ErrMissingImage = errors.New("location requires an image")
)

// LocationRepo persists locations. Payloads are base64 text in every method.
type LocationRepo struct {
	db *gorm.DB
}

func NewLocationRepo(db *gorm.DB) *LocationRepo {
	return &LocationRepo{db: db}
}

// Create stores a location with its photo and returns the full record,
// including the assigned id and creation time.
func (r *LocationRepo) Create(ctx context.Context, in NewLocation) (*Location, error) {
	if len(in.Image) == 0 || in.ImageType == "" {
		return nil, ErrMissingImage
	}

	data := base64.StdEncoding.EncodeToString(in.Image)
	imageType := in.ImageType
	loc := Location{
		Title:       in.Title,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		Description: in.Description,
		ImageData:   &data,
		ImageType:   &imageType,
		ImageSize:   int64(len(in.Image)),
	}
	if len(in.Thumbnail) > 0 {
		thumb := base64.StdEncoding.EncodeToString(in.Thumbnail)
		loc.ThumbnailData = &thumb
	}

	if err := r.db.WithContext(ctx).Create(&loc).Error; err != nil {
		return nil, fmt.Errorf("create location: %w", err)
	}
	return &loc, nil
}

// GetByID returns location metadata without payloads.
func (r *LocationRepo) GetByID(ctx context.Context, id int64) (*Location, error) {
	var loc Location
	err := r.db.WithContext(ctx).Select(metadataColumns).First(&loc, id).Error
	if err != nil {
		return nil, notFound(err, "get location %d", id)
	}
	return &loc, nil
}

// List returns metadata for every location, newest first.
func (r *LocationRepo) List(ctx context.Context) ([]Location, error) {
	locs := make([]Location, 0)
	err := r.db.WithContext(ctx).
		Select(metadataColumns).
		Order("created_at DESC").
		Order("id DESC").
		Find(&locs).Error
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locs, nil
}

// Update replaces the editable metadata of a location.
func (r *LocationRepo) Update(ctx context.Context, id int64, in LocationUpdate) (*Location, error) {
	res := r.db.WithContext(ctx).
		Model(&Location{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"title":       in.Title,
			"latitude":    in.Latitude,
			"longitude":   in.Longitude,
			"description": in.Description,
		})
	if res.Error != nil {
		return nil, fmt.Errorf("update location %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

// GetImage returns the decoded primary image.
func (r *LocationRepo) GetImage(ctx context.Context, id int64) (*ImagePayload, error) {
	var loc Location
	err := r.db.WithContext(ctx).Select("id", "image_data", "image_type").First(&loc, id).Error
	if err != nil {
		return nil, notFound(err, "get image %d", id)
	}
	if loc.ImageData == nil || loc.ImageType == nil {
		return nil, ErrNotFound
	}

	data, err := base64.StdEncoding.DecodeString(*loc.ImageData)
	if err != nil {
		return nil, fmt.Errorf("decode image %d: %w", id, err)
	}
	return &ImagePayload{Data: data, MimeType: *loc.ImageType}, nil
}

// GetThumbnail returns the decoded thumbnail. A location without one yields
// ErrNoThumbnail, a missing location ErrNotFound.
func (r *LocationRepo) GetThumbnail(ctx context.Context, id int64) (*ImagePayload, error) {
	var loc Location
	err := r.db.WithContext(ctx).Select("id", "thumbnail_data").First(&loc, id).Error
	if err != nil {
		return nil, notFound(err, "get thumbnail %d", id)
	}
	if loc.ThumbnailData == nil || *loc.ThumbnailData == "" {
		return nil, ErrNoThumbnail
	}

	data, err := base64.StdEncoding.DecodeString(*loc.ThumbnailData)
	if err != nil {
		return nil, fmt.Errorf("decode thumbnail %d: %w", id, err)
	}
	return &ImagePayload{Data: data, MimeType: "image/jpeg"}, nil
}

// SetThumbnail stores a thumbnail derived after the upload.
func (r *LocationRepo) SetThumbnail(ctx context.Context, id int64, thumb []byte) error {
	if len(thumb) == 0 {
		return errors.New("empty thumbnail")
	}
	enc := base64.StdEncoding.EncodeToString(thumb)
	res := r.db.WithContext(ctx).
		Model(&Location{}).
		Where("id = ?", id).
		Update("thumbnail_data", enc)
	if res.Error != nil {
		return fmt.Errorf("set thumbnail %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MissingThumbnails lists ids of locations that have an image but no thumbnail.
func (r *LocationRepo) MissingThumbnails(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&Location{}).
		Where("thumbnail_data IS NULL AND image_data IS NOT NULL").
		Order("id").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list missing thumbnails: %w", err)
	}
	return ids, nil
}

// Delete removes a location. It reports false when nothing matched.
func (r *LocationRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&Location{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete location %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

// Stats returns the number of locations and the decoded image bytes stored.
func (r *LocationRepo) Stats(ctx context.Context) (count int64, size int64, err error) {
	row := r.db.WithContext(ctx).
		Model(&Location{}).
		Select("COUNT(*), COALESCE(SUM(image_size), 0)").
		Row()
	if err := row.Scan(&count, &size); err != nil {
		return 0, 0, fmt.Errorf("load stats: %w", err)
	}
	return count, size, nil
}

func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
