package httpapi

import (
	"net/http"
)

type cartItemRequest struct {
	ItemID string `json:"itemId"`
}

func (a *api) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	userID, _ := CurrentUserID(r.Context())
	if err := a.cartSvc.AddToCart(r.Context(), userID, req.ItemID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteMessage(w, http.StatusOK, true, "Added To Cart")
}

func (a *api) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	var req cartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	userID, _ := CurrentUserID(r.Context())
	if err := a.cartSvc.RemoveFromCart(r.Context(), userID, req.ItemID); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteMessage(w, http.StatusOK, true, "Removed From Cart")
}

func (a *api) handleCartGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	cart, err := a.cartSvc.GetCart(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"cartData": cart})
}
