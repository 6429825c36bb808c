package handlers

import (
	"context"
	"net/http"
	"time"
)

// ==================== Audience Pages ====================

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.templates.Index, "page", h.pageData(r, "Pitches"))
}

func (h *Handlers) handleLivePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.templates.Live, "page", h.pageData(r, "Live"))
}

func (h *Handlers) handleShowcasePage(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.templates.Showcase, "page", h.pageData(r, "Winner"))
}

// ==================== Admin Pages ====================

func (h *Handlers) handleAdminLive(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r, "Live Control")
	data.ActiveNav = "live"
	h.render(w, h.templates.AdminLive, "admin", data)
}

func (h *Handlers) handleAdminPitches(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r, "Manage Pitches")
	data.ActiveNav = "pitches"
	h.render(w, h.templates.AdminPitches, "admin", data)
}

func (h *Handlers) handleAdminResults(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r, "Results")
	data.ActiveNav = "results"
	h.render(w, h.templates.AdminResults, "admin", data)
}

func (h *Handlers) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	data := h.pageData(r, "Settings")
	data.ActiveNav = "settings"
	h.render(w, h.templates.AdminSettings, "admin", data)
}

// ==================== Settings ====================

func (h *Handlers) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	baseURL, err := h.Settings.GetBaseURL(ctx)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	audienceURL, _ := h.Settings.AudienceURL(ctx, h.Options.FallbackBaseURL)

	respondOK(w, SettingsResponse{BaseURL: baseURL, AudienceURL: audienceURL})
}

func (h *Handlers) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	if req.BaseURL != nil {
		if err := h.Settings.SetBaseURL(r.Context(), *req.BaseURL); err != nil {
			h.respondError(w, r, err)
			return
		}
	}

	h.handleGetSettings(w, r)
}

// handleAudienceQR serves a QR code PNG for the audience live page
func (h *Handlers) handleAudienceQR(w http.ResponseWriter, r *http.Request) {
	png, err := h.Settings.AudienceQR(r.Context(), h.Options.FallbackBaseURL)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}

// ==================== Health ====================

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.Options.Health == nil {
		respondOK(w, HealthResponse{Status: "ok"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.Options.Health.Ping(ctx); err != nil {
		h.Log.Warn("Health check failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	respondOK(w, HealthResponse{Status: "ok"})
}
