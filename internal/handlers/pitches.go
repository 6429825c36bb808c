package handlers

import (
	"net/http"

	"github.com/abrezinsky/pitchvote/internal/repository"
	"github.com/abrezinsky/pitchvote/internal/services"
)

// ==================== Pitches ====================

func (h *Handlers) handleGetPitches(w http.ResponseWriter, r *http.Request) {
	pitches, err := h.Pitch.ListPitches(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, pitches)
}

func (h *Handlers) handleGetPitch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	pitch, err := h.Pitch.GetPitch(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, pitch)
}

func (h *Handlers) handleCreatePitch(w http.ResponseWriter, r *http.Request) {
	var req PitchCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	pitch, err := h.Pitch.CreatePitch(r.Context(), services.PitchInput{
		Title:       req.Title,
		Description: req.Description,
		Presenter:   req.Presenter,
		ImageURL:    req.ImageURL,
		Category:    req.Category,
		Visible:     req.Visible,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, pitch)
}

// handleUpdatePitch applies a partial update. A non-empty ratings array is
// accepted from anyone; clearing ratings and every other field need an
// admin session.
func (h *Handlers) handleUpdatePitch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req PitchUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	clearing := req.Ratings != nil && len(*req.Ratings) == 0
	if (req.hasAdminFields() || clearing) && !h.Auth.GetSessionFromRequest(r) {
		h.respondError(w, r, Unauthorized("Unauthorized - please log in"))
		return
	}
	if !req.hasAdminFields() && req.Ratings == nil {
		h.respondError(w, r, BadRequest("Nothing to update"))
		return
	}

	ctx := r.Context()
	if req.hasAdminFields() {
		update := repository.PitchUpdate{
			Title:       req.Title,
			Description: req.Description,
			Presenter:   req.Presenter,
			ImageURL:    req.ImageURL,
			Category:    req.Category,
			Visible:     req.Visible,
		}
		if _, err := h.Pitch.UpdatePitch(ctx, id, update); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	if req.Ratings != nil {
		if _, err := h.Pitch.ReplaceRatings(ctx, id, *req.Ratings); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	pitch, err := h.Pitch.GetPitch(ctx, id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, pitch)
}

func (h *Handlers) handleDeletePitch(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Pitch.DeletePitch(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}

// ==================== Ratings ====================

// handleSubmitRating appends one audience score
func (h *Handlers) handleSubmitRating(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var req RatingSubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	pitch, err := h.Pitch.SubmitRating(r.Context(), id, *req.Score)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, pitch)
}

// handleResetRatings clears every pitch's ratings
func (h *Handlers) handleResetRatings(w http.ResponseWriter, r *http.Request) {
	n, err := h.Live.ResetRatings(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, ResetResponse{PitchesReset: n})
}
