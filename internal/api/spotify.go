package api

import (
	"errors"
	"net/http"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/tasks"
)

func (h *Handler) playlists(w http.ResponseWriter, r *http.Request, backend *tasks.LibraryBackend) {
	playlists, err := backend.Playlists(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.PlaylistsResponse{Playlists: playlists})
}

func (h *Handler) user(w http.ResponseWriter, r *http.Request, backend *tasks.LibraryBackend) {
	user, err := backend.User(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request, backend *tasks.LibraryBackend) {
	var req services.PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	partitions, err := backend.Preview(r.Context(), req.SourceIdentifier)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if partitions == nil {
		partitions = []models.PartitionPreview{}
	}

	h.logger.Info("preview", "source", req.SourceIdentifier, "partitions", len(partitions))
	writeJSON(w, http.StatusOK, services.PreviewResponse{PreviewData: partitions})
}

func (h *Handler) createMonthlyPlaylists(w http.ResponseWriter, r *http.Request, backend *tasks.LibraryBackend) {
	var req services.MaterializeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Playlists) == 0 {
		writeError(w, http.StatusBadRequest, "No playlists to create.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	results, err := backend.CreateMonthlyPlaylists(r.Context(), req.SourceIdentifier, req.Playlists)
	if err != nil {
		if len(results) > 0 {
			h.logger.Warn("materialization partially applied", "processed", len(results), "requested", len(req.Playlists))
		}
		h.fail(w, r, err)
		return
	}

	if results == nil {
		results = []models.MaterializedPlaylist{}
	}

	h.logger.Info("materialized", "source", req.SourceIdentifier, "playlists", len(results))
	writeJSON(w, http.StatusOK, services.MaterializeResponse{
		Message:   "Playlists processed successfully",
		Playlists: results,
	})
}

// cover renders the cover image of a YYYY-MM month.
func (h *Handler) cover(w http.ResponseWriter, r *http.Request) {
	if h.covers == nil {
		writeError(w, http.StatusNotFound, "covers are disabled")
		return
	}

	data, err := h.covers.Render(r.PathValue("token"))
	if err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to render cover", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render cover")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
