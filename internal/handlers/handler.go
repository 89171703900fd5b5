// Package handlers implements the HTTP API: session login, location CRUD,
// photo upload and image delivery.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"travellog/internal/codec"
	"travellog/internal/config"
	"travellog/internal/database"
	"travellog/internal/middleware"
	"travellog/internal/session"
	"travellog/pkg/cache"
	"travellog/pkg/utils"
)

// SessionManager is the session service as seen by the handlers.
type SessionManager interface {
	Create(ctx context.Context) (*session.Session, error)
	Authenticate(ctx context.Context, id, code string) (bool, error)
	IsValid(ctx context.Context, id string) bool
	Exists(ctx context.Context, id string) bool
	Invalidate(ctx context.Context, id string) error
	TTL() time.Duration
}

// LocationStore is the location repository as seen by the handlers.
type LocationStore interface {
	Create(ctx context.Context, in database.NewLocation) (*database.Location, error)
	GetByID(ctx context.Context, id int64) (*database.Location, error)
	List(ctx context.Context) ([]database.Location, error)
	Update(ctx context.Context, id int64, in database.LocationUpdate) (*database.Location, error)
	Delete(ctx context.Context, id int64) (bool, error)
	GetImage(ctx context.Context, id int64) (*database.ImagePayload, error)
	GetThumbnail(ctx context.Context, id int64) (*database.ImagePayload, error)
	SetThumbnail(ctx context.Context, id int64, thumb []byte) error
}

// ImageCodec normalizes uploads and derives thumbnails.
type ImageCodec interface {
	Process(in codec.Input) (*codec.Result, error)
	Thumbnail(data []byte) ([]byte, error)
}

type Deps struct {
	Config    *config.Config
	Sessions  SessionManager
	Locations LocationStore
	Codec     ImageCodec
	Cache     *cache.MemoryCache

	// Ping checks database connectivity for /health. Optional.
	Ping func(ctx context.Context) error
}

type Handler struct {
	cfg       *config.Config
	sessions  SessionManager
	locations LocationStore
	codec     ImageCodec
	cache     *cache.MemoryCache
	ping      func(ctx context.Context) error

	maxUpload    int64
	loginLimiter *middleware.RateLimiter
	failureDelay time.Duration

	// thumbnails coalesces concurrent backfills of the same location.
	thumbnails singleflight.Group
}

func New(d Deps) *Handler {
	c := d.Cache
	if c == nil {
		c = cache.New(false, 0, 0)
	}

	perMinute := d.Config.Auth.LoginRateLimit
	if perMinute <= 0 {
		perMinute = 10
	}

	return &Handler{
		cfg:       d.Config,
		sessions:  d.Sessions,
		locations: d.Locations,
		codec:     d.Codec,
		cache:     c,
		ping:      d.Ping,
		maxUpload: d.Config.MaxUploadBytes(),
		loginLimiter: middleware.NewRateLimiter(perMinute, time.Minute, perMinute).
			WithError(utils.ErrAuthRateLimitExceed, "Too many login attempts. Please wait."),
		failureDelay: 300 * time.Millisecond,
	}
}

// Routes registers every endpoint on a new ServeMux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)
	if h.cfg.Metrics.Enabled {
		path := h.cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, promhttp.Handler())
	}

	// Sessions
	login := h.loginLimiter.Middleware(http.HandlerFunc(h.Login))
	mux.HandleFunc("POST /api/sessions", h.CreateSession)
	mux.Handle("POST /api/login", login)
	mux.Handle("POST /api/access-codes/validate", login)
	mux.HandleFunc("GET /api/logout", h.Logout)
	mux.HandleFunc("POST /api/logout", h.Logout)
	mux.HandleFunc("GET /api/session", h.SessionStatus)

	// Locations
	mux.HandleFunc("GET /api/locations", h.RequireSession(h.ListLocations))
	mux.HandleFunc("POST /api/locations", h.RequireSession(h.CreateLocation))
	mux.HandleFunc("GET /api/locations/{id}", h.RequireSession(h.GetLocation))
	mux.HandleFunc("PUT /api/locations/{id}", h.RequireSession(h.UpdateLocation))
	mux.HandleFunc("DELETE /api/locations/{id}", h.RequireSession(h.DeleteLocation))

	// Images
	mux.HandleFunc("GET /api/locations/{id}/image", h.RequireSession(h.ServeImage))
	mux.HandleFunc("GET /api/locations/{id}/image/base64", h.RequireSession(h.ServeImageEnvelope))
	mux.HandleFunc("GET /api/locations/{id}/thumbnail", h.RequireSession(h.ServeThumbnail))

	mux.HandleFunc("GET /api/stats", h.RequireSession(h.Stats))

	return mux
}

func thumbKey(id int64) string {
	return "thumb:" + formatID(id)
}
