package handlers

import (
	"net/http"

	"github.com/abrezinsky/pitchvote/internal/models"
	"github.com/abrezinsky/pitchvote/internal/services"
)

// ==================== Live State ====================

func (h *Handlers) handleGetLiveState(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")
	respondOK(w, h.Live.State())
}

// handleMergeLiveState merges a partial live state. Fields absent from the
// body are left unchanged; an explicit null clears an id.
func (h *Handlers) handleMergeLiveState(w http.ResponseWriter, r *http.Request) {
	var patch models.LiveStatePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		h.respondError(w, r, err)
		return
	}

	state, err := h.Live.Merge(r.Context(), patch)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, state)
}

// ==================== Live Controls ====================

func (h *Handlers) handleGetSequence(w http.ResponseWriter, r *http.Request) {
	pitches, err := h.Live.Sequence(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, SequenceResponse{Pitches: pitches})
}

func (h *Handlers) handleStartLive(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r)(h.Live.StartLive(r.Context()))
}

func (h *Handlers) handleEndLive(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r)(h.Live.EndLive(r.Context()))
}

func (h *Handlers) handleNextPitch(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r)(h.Live.Advance(r.Context(), services.Next))
}

func (h *Handlers) handlePreviousPitch(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r)(h.Live.Advance(r.Context(), services.Previous))
}

// ==================== Showcase ====================

func (h *Handlers) handleGetShowcase(w http.ResponseWriter, r *http.Request) {
	view, err := h.Results.Showcase(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, view)
}

func (h *Handlers) handleStartShowcase(w http.ResponseWriter, r *http.Request) {
	var req ShowcaseStartRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondState(w, r)(h.Live.StartShowcase(r.Context(), req.CategoryID))
}

func (h *Handlers) handleEndShowcase(w http.ResponseWriter, r *http.Request) {
	h.respondState(w, r)(h.Live.EndShowcase(r.Context()))
}

// respondState writes the live state returned by a control action
func (h *Handlers) respondState(w http.ResponseWriter, r *http.Request) func(models.LiveState, error) {
	return func(state models.LiveState, err error) {
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		respondOK(w, state)
	}
}
