package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"forkfast/internal/domain"
)

type foodResponse struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func toFoodResponse(f domain.Food) foodResponse {
	return foodResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Image:       f.Image,
		Category:    f.Category,
		CreatedAt:   f.CreatedAt,
	}
}

func (a *api) handleFoodList(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	res, err := a.catalogSvc.ListFoods(r.Context(), page, limit)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	foods := make([]foodResponse, 0, len(res.Foods))
	for _, f := range res.Foods {
		foods = append(foods, toFoodResponse(f))
	}
	WritePayload(w, http.StatusOK, "", map[string]any{
		"data":  foods,
		"page":  res.Page,
		"limit": res.Limit,
		"total": res.Total,
	})
}

func (a *api) handleFoodGet(w http.ResponseWriter, r *http.Request) {
	f, err := a.catalogSvc.GetFood(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"data": toFoodResponse(f)})
}

type foodRequest struct {
	ID          string          `json:"id,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
}

func (req foodRequest) toDomain() domain.Food {
	return domain.Food{
		ID:          req.ID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       req.Image,
		Category:    req.Category,
	}
}

func (a *api) handleFoodAdd(w http.ResponseWriter, r *http.Request) {
	var req foodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	f, err := a.catalogSvc.AddFood(r.Context(), req.toDomain())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusCreated, "Food Added", map[string]any{"data": toFoodResponse(f)})
}

func (a *api) handleFoodUpdate(w http.ResponseWriter, r *http.Request) {
	var req foodRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.ID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	f, err := a.catalogSvc.UpdateFood(r.Context(), req.toDomain())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "Food Updated", map[string]any{"data": toFoodResponse(f)})
}

type removeRequest struct {
	ID string `json:"id"`
}

func (a *api) handleFoodRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.ID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"id": "required"}))
		return
	}

	if err := a.catalogSvc.RemoveFood(r.Context(), req.ID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteMessage(w, http.StatusOK, true, "Food Removed")
}
