package handlers

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"travellog/internal/database"
	"travellog/internal/metrics"
	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

const (
	// Full images may be replaced or deleted, so clients never cache them.
	imageCacheControl = "no-store"
	// Thumbnails are immutable once generated.
	thumbnailCacheControl = "private, max-age=31536000, immutable"
)

var errThumbnailUnavailable = errors.New("thumbnail unavailable")

// ServeImage streams the stored image bytes.
// GET /api/locations/{id}/image
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	img, err := h.locations.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "Image not found.")
			return
		}
		logger.LogError("Images: get image %d failed: %v", id, err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Internal server error.")
		return
	}

	w.Header().Set("Content-Type", img.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	w.Header().Set("Cache-Control", imageCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(img.Data)
	}
	metrics.ImagesServed.WithLabelValues("image", "binary").Inc()
}

// ServeImageEnvelope returns the image as base64 inside a JSON envelope.
// GET /api/locations/{id}/image/base64
func (h *Handler) ServeImageEnvelope(w http.ResponseWriter, r *http.Request) {
	id, err := utils.ParseID(r.PathValue("id"))
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": "Location id must be a positive integer.",
		})
		return
	}

	img, err := h.locations.GetImage(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, map[string]interface{}{
				"success": false,
				"message": "Image not found.",
			})
			return
		}
		logger.LogError("Images: get image %d failed: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"message": "Internal server error.",
		})
		return
	}

	w.Header().Set("Cache-Control", imageCacheControl)
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"imageData": base64.StdEncoding.EncodeToString(img.Data),
		"imageType": img.MimeType,
	})
	metrics.ImagesServed.WithLabelValues("image", "envelope").Inc()
}

// ServeThumbnail serves the thumbnail, deriving and storing it first when the
// location predates thumbnail generation or its generation failed.
// GET /api/locations/{id}/thumbnail
func (h *Handler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if data, found := h.cache.Get(thumbKey(id)); found {
		metrics.ThumbnailCacheHits.Inc()
		serveWithETag(w, r, data, "image/jpeg", "thumbnail")
		return
	}

	data, err := h.loadThumbnail(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "Location not found.")
		case errors.Is(err, errThumbnailUnavailable):
			utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "Thumbnail not available.")
		default:
			logger.LogError("Images: get thumbnail %d failed: %v", id, err)
			utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Internal server error.")
		}
		return
	}

	h.cache.Set(thumbKey(id), data)
	serveWithETag(w, r, data, "image/jpeg", "thumbnail")
}

func (h *Handler) loadThumbnail(ctx context.Context, id int64) ([]byte, error) {
	thumb, err := h.locations.GetThumbnail(ctx, id)
	if err == nil {
		return thumb.Data, nil
	}
	if !errors.Is(err, database.ErrNoThumbnail) {
		return nil, err
	}

	v, err, _ := h.thumbnails.Do(formatID(id), func() (interface{}, error) {
		return h.backfillThumbnail(context.WithoutCancel(ctx), id)
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// backfillThumbnail derives a thumbnail from the stored image and persists it.
// A persistence failure is logged and the derived bytes are still served,
// unless the location no longer exists.
func (h *Handler) backfillThumbnail(ctx context.Context, id int64) ([]byte, error) {
	img, err := h.locations.GetImage(ctx, id)
	if err != nil {
		return nil, err
	}

	thumb, err := h.codec.Thumbnail(img.Data)
	if err != nil {
		logger.LogWarn("Images: thumbnail backfill for %d failed: %v", id, err)
		metrics.ThumbnailBackfills.WithLabelValues("codec_error").Inc()
		return nil, errThumbnailUnavailable
	}

	if err := h.locations.SetThumbnail(ctx, id, thumb); err != nil {
		// Deleted while the thumbnail was being derived.
		if errors.Is(err, database.ErrNotFound) {
			metrics.ThumbnailBackfills.WithLabelValues("deleted").Inc()
			return nil, database.ErrNotFound
		}
		logger.LogError("Images: storing backfilled thumbnail %d failed: %v", id, err)
		metrics.ThumbnailBackfills.WithLabelValues("storage_error").Inc()
		return thumb, nil
	}

	metrics.ThumbnailBackfills.WithLabelValues("stored").Inc()
	logger.LogInfo("Images: backfilled thumbnail for location %d", id)
	return thumb, nil
}

// serveWithETag writes data with a content-hash ETag and answers matching
// If-None-Match requests with 304.
func serveWithETag(w http.ResponseWriter, r *http.Request, data []byte, mimeType, variant string) {
	hash := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(hash[:]) + `"`

	w.Header().Set("Cache-Control", thumbnailCacheControl)
	w.Header().Set("ETag", etag)

	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		metrics.ImagesServed.WithLabelValues(variant, "not_modified").Inc()
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
	metrics.ImagesServed.WithLabelValues(variant, "binary").Inc()
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
