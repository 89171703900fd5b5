package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"travellog/internal/appinfo"
	"travellog/internal/codec"
	"travellog/internal/database"
	"travellog/internal/metrics"
	"travellog/internal/validation"
	"travellog/pkg/logger"
	"travellog/pkg/utils"
)

// multipartMemory is the part of a form kept in RAM; the rest spills to disk.
const multipartMemory = 8 << 20

type uploadForm struct {
	Title       string `form:"title" validate:"required,max=200"`
	Latitude    string `form:"latitude" validate:"required,decimal"`
	Longitude   string `form:"longitude" validate:"required,decimal"`
	Description string `form:"description" validate:"max=2000"`
}

// CreateLocation accepts a multipart upload with title, latitude, longitude,
// optional description and an image file. The size ceiling is enforced
// before any image work; the response never includes image bytes.
// POST /api/locations
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxUpload {
		h.rejectTooLarge(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isTooLarge(err) {
			h.rejectTooLarge(w)
			return
		}
		metrics.Uploads.WithLabelValues("invalid").Inc()
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestBadRequest, "Expected a multipart/form-data body.")
		return
	}
	defer r.MultipartForm.RemoveAll()

	form := uploadForm{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Latitude:    strings.TrimSpace(r.FormValue("latitude")),
		Longitude:   strings.TrimSpace(r.FormValue("longitude")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}

	fields := map[string]string{}
	if err := validation.Struct(&form); err != nil {
		var verr *validation.Error
		if !errors.As(err, &verr) {
			utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestInvalid, err.Error())
			return
		}
		for k, v := range verr.Fields {
			fields[k] = v
		}
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		fields["image"] = "image is required"
	} else {
		defer file.Close()
	}

	if len(fields) > 0 {
		metrics.Uploads.WithLabelValues("invalid").Inc()
		utils.WriteValidationError(w, "Invalid upload.", fields)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		metrics.Uploads.WithLabelValues("invalid").Inc()
		utils.WriteError(w, http.StatusBadRequest, utils.ErrRequestBadRequest, "Could not read the uploaded file.")
		return
	}
	metrics.UploadBytes.Observe(float64(len(data)))

	lat, _ := utils.ParseCoordinate(form.Latitude)
	lng, _ := utils.ParseCoordinate(form.Longitude)

	result, err := h.codec.Process(codec.Input{
		Data:         data,
		DeclaredType: header.Header.Get("Content-Type"),
		Filename:     header.Filename,
	})
	if err != nil {
		logger.LogWarn("Upload: rejected %q (%s): %v", header.Filename, utils.FormatBytes(int64(len(data))), err)
		metrics.Uploads.WithLabelValues("codec_error").Inc()
		utils.WriteError(w, http.StatusBadRequest, utils.ErrImageProcessingFailed, "The uploaded file could not be read as an image.")
		return
	}

	loc, err := h.locations.Create(r.Context(), database.NewLocation{
		Title:       form.Title,
		Latitude:    lat,
		Longitude:   lng,
		Description: form.Description,
		Image:       result.Primary,
		ImageType:   result.PrimaryType,
		Thumbnail:   result.Thumbnail,
	})
	if err != nil {
		logger.LogError("Upload: failed to store location %q: %v", form.Title, err)
		metrics.Uploads.WithLabelValues("storage_error").Inc()
		utils.WriteError(w, http.StatusInternalServerError, utils.ErrServerInternal, "Failed to save location.")
		return
	}

	appinfo.AddLocation(loc.ImageSize)
	if result.Thumbnail != nil {
		h.cache.Set(thumbKey(loc.ID), result.Thumbnail)
	}
	metrics.Uploads.WithLabelValues("created").Inc()

	logger.LogSuccess("Upload: location %d %q stored (%s, %dx%d)",
		loc.ID, loc.Title, utils.FormatBytes(loc.ImageSize), result.Width, result.Height)

	utils.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"location": loc,
	})
}

func (h *Handler) rejectTooLarge(w http.ResponseWriter) {
	metrics.Uploads.WithLabelValues("too_large").Inc()
	utils.WriteError(w, http.StatusRequestEntityTooLarge, utils.ErrRequestBodyTooLarge,
		"Upload exceeds the "+utils.FormatBytes(h.maxUpload)+" limit.")
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}
