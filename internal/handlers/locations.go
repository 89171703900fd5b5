package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"travellog/internal/appinfo"
	"travellog/internal/database"
	"travellog/internal/validation"
	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

type updateLocationRequest struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Latitude    *float64 `json:"latitude" validate:"required"`
	Longitude   *float64 `json:"longitude" validate:"required"`
	Description string   `json:"description" validate:"max=2000"`
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// pathID parses {id}. It writes a 400 and returns false when malformed.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := utils.ParseID(r.PathValue("id"))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Location id must be a positive integer.")
		return 0, false
	}
	return id, true
}

// ListLocations returns metadata for every location.
// GET /api/locations
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.locations.List(r.Context())
	if err != nil {
		logger.LogError("Locations: list failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to load locations.")
		return
	}
	utils.WriteJSON(w, http.StatusOK, locs)
}

// GetLocation returns one location's metadata.
// GET /api/locations/{id}
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	loc, err := h.locations.GetByID(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, "get location", id, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, loc)
}

// UpdateLocation edits title, coordinates and description. The photo stays.
// PUT /api/locations/{id}
func (h *Handler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateLocationRequest
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, "Invalid request body.")
		return
	}
	req.Title = strings.TrimSpace(req.Title)

	if err := validation.Struct(&req); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			utils.WriteValidationError(w, "Invalid location.", verr.Fields)
			return
		}
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, err.Error())
		return
	}

	loc, err := h.locations.Update(r.Context(), id, database.LocationUpdate{
		Title:       req.Title,
		Latitude:    *req.Latitude,
		Longitude:   *req.Longitude,
		Description: req.Description,
	})
	if err != nil {
		h.writeLookupError(w, "update location", id, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"location": loc,
	})
}

// DeleteLocation removes a location with its image and thumbnail.
// DELETE /api/locations/{id}
func (h *Handler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	loc, err := h.locations.GetByID(ctx, id)
	if err != nil {
		h.writeLookupError(w, "delete location", id, err)
		return
	}

	deleted, err := h.locations.Delete(ctx, id)
	if err != nil {
		logger.LogError("Locations: delete %d failed: %v", id, err)
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to delete location.")
		return
	}
	if !deleted {
		utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "Location not found.")
		return
	}

	h.cache.Delete(thumbKey(id))
	appinfo.RemoveLocation(loc.ImageSize)

	utils.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"id":      id,
	})
}

// writeLookupError maps repository errors to 404 or an opaque 500.
func (h *Handler) writeLookupError(w http.ResponseWriter, op string, id int64, err error) {
	if errors.Is(err, database.ErrNotFound) {
		utils.WriteError(w, http.StatusNotFound, utils.ErrResourceNotFound, "Location not found.")
		return
	}
	logger.LogError("Locations: %s %d failed: %v", op, id, err)
	utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Internal server error.")
}
