package handlers

import "net/http"

// ==================== Categories ====================

func (h *Handlers) handleGetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Category.ListCategories(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, categories)
}

func (h *Handlers) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CategoryCreateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}

	category, err := h.Category.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondCreated(w, category)
}

func (h *Handlers) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if err := h.Category.DeleteCategory(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	respondDeleted(w)
}

func (h *Handlers) handleGetCategoryWinner(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.Results.WinnerForCategory(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, result)
}

func (h *Handlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := h.Results.Leaderboard(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	respondOK(w, standings)
}
