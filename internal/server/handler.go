package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/LambTjops/vod-downloader/internal/catalog"
	apperrors "github.com/LambTjops/vod-downloader/internal/errors"
	"github.com/LambTjops/vod-downloader/internal/monitoring"
	"github.com/LambTjops/vod-downloader/internal/queue"
)

// CatalogBrowser is the read side of the provider catalog used by the
// browse endpoints.
type CatalogBrowser interface {
	Categories(ctx context.Context) ([]catalog.Category, error)
	Streams(ctx context.Context, categoryID string) ([]catalog.Stream, error)
	SeriesList(ctx context.Context, categoryID string) ([]catalog.Series, error)
	SeriesInfo(ctx context.Context, seriesID string) (*catalog.SeriesInfo, error)
}

// Handler serves the queue, control and catalog browse API
type Handler struct {
	Manager *queue.Manager
	Catalog CatalogBrowser
	Health  *monitoring.HealthChecker
	Logger  *zap.Logger
}

// NewHandler creates an API handler
func NewHandler(m *queue.Manager, c CatalogBrowser, h *monitoring.HealthChecker, logger *zap.Logger) *Handler {
	return &Handler{
		Manager: m,
		Catalog: c,
		Health:  h,
		Logger:  logger,
	}
}

// NewRouter builds the chi router with all routes registered
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes attaches the API routes to a router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/queue", h.EnqueueItem)
		r.Post("/queue/series/{seriesID}", h.EnqueueSeries)
		r.Get("/queue", h.ListQueue)
		r.Delete("/queue/{jobID}", h.RemoveJob)
		r.Post("/queue/reorder", h.ReorderQueue)
		r.Post("/queue/clear", h.ClearQueue)

		r.Post("/control/pause", h.PauseQueue)
		r.Post("/control/resume", h.ResumeQueue)
		r.Post("/control/stop", h.StopQueue)
		r.Get("/progress", h.GetProgress)

		r.Get("/downloads", h.ListDownloads)
		r.Put("/downloads/{itemID}", h.MarkDownloaded)
		r.Delete("/downloads/{itemID}", h.UnmarkDownloaded)
		r.Post("/scan", h.ScanFiles)

		r.Get("/categories", h.ListCategories)
		r.Get("/streams", h.ListStreams)
		r.Get("/series/{seriesID}/episodes", h.ListEpisodes)
	})

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", h.Healthz)
}

// respondJSON writes a JSON response with the given status
func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.Logger.Error("failed to encode response", zap.Error(err))
	}
}

// respondError maps an application error to its HTTP status and writes a
// JSON error body.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := apperrors.StatusCode(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", zap.Error(err))
	}

	h.respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"type":  string(apperrors.GetErrorType(err)),
	})
}

// decodeBody decodes a JSON request body into dst
func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidationError("invalid request body: " + err.Error())
	}
	return nil
}
