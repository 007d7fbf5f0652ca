package httpapi

import (
	"net/http"
	"time"

	"forkfast/internal/domain"
)

type categoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

func toCategoryResponse(c domain.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Name: c.Name, Image: c.Image, CreatedAt: c.CreatedAt}
}

func (a *api) handleCategoryList(w http.ResponseWriter, r *http.Request) {
	cats, err := a.catalogSvc.ListCategories(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	out := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, toCategoryResponse(c))
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"data": out})
}

func (a *api) handleCategoryGet(w http.ResponseWriter, r *http.Request) {
	c, err := a.catalogSvc.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"data": toCategoryResponse(c)})
}

type categoryRequest struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

func (a *api) handleCategoryAdd(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	c, err := a.catalogSvc.AddCategory(r.Context(), domain.Category{Name: req.Name, Image: req.Image})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusCreated, "Category Added", map[string]any{"data": toCategoryResponse(c)})
}

func (a *api) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.ID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	c, err := a.catalogSvc.UpdateCategory(r.Context(), domain.Category{ID: req.ID, Name: req.Name, Image: req.Image})
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "Category Updated", map[string]any{"data": toCategoryResponse(c)})
}

func (a *api) handleCategoryRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.ID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	if err := a.catalogSvc.RemoveCategory(r.Context(), req.ID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteMessage(w, http.StatusOK, true, "Category Removed")
}
