package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/LambTjops/vod-downloader/internal/catalog"
	apperrors "github.com/LambTjops/vod-downloader/internal/errors"
	"github.com/LambTjops/vod-downloader/internal/monitoring"
	"github.com/LambTjops/vod-downloader/internal/queue"
)

// enqueueRequest is the body of POST /api/queue
type enqueueRequest struct {
	Kind      catalog.Kind `json:"kind"`
	ID        string       `json:"id"`
	Extension string       `json:"extension"`
	Title     string       `json:"title"`
}

// EnqueueItem adds one catalog item to the download queue
func (h *Handler) EnqueueItem(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	jobID, err := h.Manager.Enqueue(req.Kind, req.ID, req.Extension, req.Title)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]string{"job_id": jobID})
}

// EnqueueSeries queues every missing episode of a series
func (h *Handler) EnqueueSeries(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")

	added, err := h.Manager.EnqueueSeries(r.Context(), seriesID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, map[string]int{"added": added})
}

// ListQueue returns the pending jobs in order
func (h *Handler) ListQueue(w http.ResponseWriter, r *http.Request) {
	jobs := h.Manager.ListQueue()

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"jobs": jobs,
		"size": len(jobs),
	})
}

// RemoveJob removes one pending job by id
func (h *Handler) RemoveJob(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.RemoveJob(chi.URLParam(r, "jobID")); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusNoContent, nil)
}

// reorderRequest is the body of POST /api/queue/reorder
type reorderRequest struct {
	Order []string `json:"order"`
}

// ReorderQueue applies a new pending job order
func (h *Handler) ReorderQueue(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	h.Manager.Reorder(req.Order)
	h.respondJSON(w, http.StatusNoContent, nil)
}

// ClearQueue removes all pending jobs
func (h *Handler) ClearQueue(w http.ResponseWriter, r *http.Request) {
	removed := h.Manager.ClearQueue()
	h.respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// PauseQueue suspends the download worker
func (h *Handler) PauseQueue(w http.ResponseWriter, r *http.Request) {
	h.Manager.Pause()
	h.respondJSON(w, http.StatusNoContent, nil)
}

// ResumeQueue resumes a paused or stopped worker
func (h *Handler) ResumeQueue(w http.ResponseWriter, r *http.Request) {
	h.Manager.Resume()
	h.respondJSON(w, http.StatusNoContent, nil)
}

// StopQueue aborts the current transfer and halts the worker
func (h *Handler) StopQueue(w http.ResponseWriter, r *http.Request) {
	h.Manager.Stop()
	h.respondJSON(w, http.StatusNoContent, nil)
}

// GetProgress returns the live worker progress snapshot
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.Manager.Progress())
}

// ListDownloads returns every recorded download keyed by itemId
func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.Manager.Downloads())
}

// markDownloadedRequest is the body of PUT /api/downloads/{itemID}
type markDownloadedRequest struct {
	Filename string `json:"filename"`
	FilePath string `json:"file_path"`
}

// MarkDownloaded records an item as downloaded without transferring it
func (h *Handler) MarkDownloaded(w http.ResponseWriter, r *http.Request) {
	var req markDownloadedRequest
	if err := decodeBody(r, &req); err != nil {
		h.respondError(w, err)
		return
	}

	itemID := chi.URLParam(r, "itemID")
	if err := h.Manager.MarkDownloaded(itemID, req.Filename, req.FilePath); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusNoContent, nil)
}

// UnmarkDownloaded removes an item's download record
func (h *Handler) UnmarkDownloaded(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.UnmarkDownloaded(chi.URLParam(r, "itemID")); err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusNoContent, nil)
}

// ScanFiles rescans the download directory and reports how many files
// were indexed.
func (h *Handler) ScanFiles(w http.ResponseWriter, r *http.Request) {
	indexed, err := h.Manager.ScanFiles()
	if err != nil {
		h.respondError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]int{"indexed": indexed})
}

// categoryResponse is one entry of GET /api/categories
type categoryResponse struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        catalog.Kind `json:"kind"`
	DisplayName string       `json:"display_name"`
}

// ListCategories returns the provider's movie and series categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.Catalog.Categories(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for i := range cats {
		out = append(out, categoryResponse{
			ID:          cats[i].ID.String(),
			Name:        cats[i].Name,
			Kind:        cats[i].Kind,
			DisplayName: cats[i].DisplayName(),
		})
	}

	h.respondJSON(w, http.StatusOK, out)
}

// listingItem is one entry of GET /api/streams, covering both movies and
// series.
type listingItem struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Kind      catalog.Kind `json:"kind"`
	Extension string       `json:"extension,omitempty"`
}

// ListStreams lists the items of one category. The category query param
// carries the kind tag, e.g. "movie:12" or "series:7".
func (h *Handler) ListStreams(w http.ResponseWriter, r *http.Request) {
	kindStr, categoryID, ok := strings.Cut(r.URL.Query().Get("category"), ":")
	kind := catalog.Kind(kindStr)
	if !ok || !kind.Valid() || categoryID == "" {
		h.respondError(w, apperrors.NewValidationError(`category must be "movie:<id>" or "series:<id>"`))
		return
	}

	var items []listingItem

	switch kind {
	case catalog.KindMovie:
		streams, err := h.Catalog.Streams(r.Context(), categoryID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		for i := range streams {
			items = append(items, listingItem{
				ID:        streams[i].ID.String(),
				Name:      streams[i].Name,
				Kind:      catalog.KindMovie,
				Extension: streams[i].Extension,
			})
		}

	case catalog.KindSeries:
		series, err := h.Catalog.SeriesList(r.Context(), categoryID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		for i := range series {
			items = append(items, listingItem{
				ID:   series[i].ID.String(),
				Name: series[i].Name,
				Kind: catalog.KindSeries,
			})
		}
	}

	h.respondJSON(w, http.StatusOK, items)
}

// episodeResponse is one entry of GET /api/series/{seriesID}/episodes
type episodeResponse struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Season     int    `json:"season"`
	Episode    int    `json:"episode"`
	Extension  string `json:"extension"`
	Downloaded bool   `json:"downloaded"`
	Queued     bool   `json:"queued"`
}

// ListEpisodes lists a series' episodes with their queue and download
// state, so callers can show what a series enqueue would add.
func (h *Handler) ListEpisodes(w http.ResponseWriter, r *http.Request) {
	seriesID := chi.URLParam(r, "seriesID")

	info, err := h.Catalog.SeriesInfo(r.Context(), seriesID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	out := make([]episodeResponse, 0, len(info.Episodes))
	for _, ep := range info.Episodes {
		itemID := queue.ItemID(catalog.KindSeries, ep.ID.String())
		out = append(out, episodeResponse{
			ID:         ep.ID.String(),
			Title:      ep.Title,
			Season:     ep.Season.Int(),
			Episode:    ep.Number.Int(),
			Extension:  ep.Extension,
			Downloaded: h.Manager.IsDownloaded(itemID),
			Queued:     h.Manager.IsQueued(itemID),
		})
	}

	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"name":     info.Name,
		"episodes": out,
	})
}

// Healthz reports service health
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	check := h.Health.Check(h.Manager.QueueSize(), h.Manager.WorkerStatus())

	status := http.StatusOK
	if check.Status == monitoring.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}

	h.respondJSON(w, status, check)
}
