package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
	"github.com/your-org/todostack/internal/usecases"
)

// ListHandler handles HTTP requests for the to-do list
type ListHandler struct {
	responder
	usecase *usecases.ListUsecase
}

// NewListHandler creates a new list handler
func NewListHandler(usecase *usecases.ListUsecase, logger *zap.Logger) *ListHandler {
	return &ListHandler{
		responder: responder{logger: logger},
		usecase:   usecase,
	}
}

type titleRequest struct {
	Title *string `json:"title"`
}

type positionRequest struct {
	Position *int `json:"position"`
}

type moveRequest struct {
	SectionID *string `json:"sectionId"`
	Position  *int    `json:"position"`
}

// GetList handles GET /api/list
func (h *ListHandler) GetList(w http.ResponseWriter, r *http.Request) {
	list, err := h.usecase.GetList(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, list)
}

// UpdateSettings handles PUT /api/settings
func (h *ListHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch domain.SettingsPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondErr(w, r, err)
		return
	}
	settings, err := h.usecase.UpdateSettings(r.Context(), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, settings)
}

// CreateSection handles POST /api/sections. The title may be empty.
func (h *ListHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	var title string
	if req.Title != nil {
		title = *req.Title
	}
	section, err := h.usecase.CreateSection(r.Context(), title)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, section)
}

// GetSection handles GET /api/sections/{id}
func (h *ListHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	section, err := h.usecase.GetSection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, section)
}

// UpdateSection handles PUT /api/sections/{id}
func (h *ListHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	var patch domain.SectionPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondErr(w, r, err)
		return
	}
	section, err := h.usecase.UpdateSection(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, section)
}

// ReorderSection handles PUT /api/sections/{id}/reorder. A missing
// position means the front.
func (h *ListHandler) ReorderSection(w http.ResponseWriter, r *http.Request) {
	var req positionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	position := 0
	if req.Position != nil {
		position = *req.Position
	}
	section, err := h.usecase.ReorderSection(r.Context(), chi.URLParam(r, "id"), position)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, section)
}

// DeleteSection handles DELETE /api/sections/{id}
func (h *ListHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	ok, err := h.usecase.DeleteSection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !ok {
		h.respondError(w, r, http.StatusBadRequest, "Cannot delete section (not found or only section)")
		return
	}
	h.respondJSON(w, r, http.StatusOK, deleted{Deleted: true})
}

// CreateItem handles POST /api/sections/{id}/items
func (h *ListHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := required(field{"title", req.Title}); err != nil {
		h.respondErr(w, r, err)
		return
	}
	item, err := h.usecase.CreateItem(r.Context(), chi.URLParam(r, "id"), *req.Title)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, item)
}

// GetItem handles GET /api/items/{id}
func (h *ListHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.usecase.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, item)
}

// UpdateItem handles PUT /api/items/{id}
func (h *ListHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch domain.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondErr(w, r, err)
		return
	}
	item, err := h.usecase.UpdateItem(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{id}
func (h *ListHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ok, err := h.usecase.DeleteItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !ok {
		h.respondError(w, r, http.StatusNotFound, "Item not found")
		return
	}
	h.respondJSON(w, r, http.StatusOK, deleted{Deleted: true})
}

// ToggleItem handles PUT /api/items/{id}/toggle
func (h *ListHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.usecase.ToggleItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, item)
}

// MoveItem handles PUT /api/items/{id}/move
func (h *ListHandler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if req.Position != nil && *req.Position < 0 {
		h.respondError(w, r, http.StatusBadRequest, "Position must not be negative")
		return
	}
	item, err := h.usecase.MoveItem(r.Context(), chi.URLParam(r, "id"), req.SectionID, req.Position)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, item)
}

// AddChild handles POST /api/items/{id}/children
func (h *ListHandler) AddChild(w http.ResponseWriter, r *http.Request) {
	var req titleRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := required(field{"title", req.Title}); err != nil {
		h.respondErr(w, r, err)
		return
	}
	child, err := h.usecase.AddChild(r.Context(), chi.URLParam(r, "id"), *req.Title)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusCreated, child)
}

// UpdateChild handles PUT /api/items/{id}/children/{childID}
func (h *ListHandler) UpdateChild(w http.ResponseWriter, r *http.Request) {
	var patch domain.ChildPatch
	if err := decodeJSON(r, &patch); err != nil {
		h.respondErr(w, r, err)
		return
	}
	child, err := h.usecase.UpdateChild(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "childID"), patch)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, child)
}

// ToggleChild handles PUT /api/items/{id}/children/{childID}/toggle
func (h *ListHandler) ToggleChild(w http.ResponseWriter, r *http.Request) {
	child, err := h.usecase.ToggleChild(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "childID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	h.respondJSON(w, r, http.StatusOK, child)
}

// DeleteChild handles DELETE /api/items/{id}/children/{childID}
func (h *ListHandler) DeleteChild(w http.ResponseWriter, r *http.Request) {
	ok, err := h.usecase.DeleteChild(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "childID"))
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if !ok {
		h.respondError(w, r, http.StatusNotFound, "Child item not found")
		return
	}
	h.respondJSON(w, r, http.StatusOK, deleted{Deleted: true})
}
