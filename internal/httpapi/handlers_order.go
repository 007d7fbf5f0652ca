package httpapi

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"forkfast/internal/domain"
)

type orderResponse struct {
	ID        string             `json:"id"`
	UserID    string             `json:"userId"`
	Address   map[string]string  `json:"address"`
	Items     []domain.OrderItem `json:"items"`
	Amount    decimal.Decimal    `json:"amount"`
	Status    string             `json:"status"`
	Payment   bool               `json:"payment"`
	CreatedAt time.Time          `json:"createdAt"`
}

func toOrderResponse(o domain.Order) orderResponse {
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Address:   o.Address,
		Items:     o.Items,
		Amount:    o.Amount,
		Status:    string(o.Status),
		Payment:   o.Payment,
		CreatedAt: o.CreatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

type placeOrderRequest struct {
	Address map[string]string  `json:"address"`
	Items   []domain.OrderItem `json:"items"`
}

func (a *api) handleOrderPlace(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	userID, _ := CurrentUserID(r.Context())
	order, payURL, err := a.orderSvc.PlaceOrder(r.Context(), userID, req.Address, req.Items)
	if err != nil {
		WriteDomainError(w, err)
		return
	}

	WritePayload(w, http.StatusOK, "", map[string]any{
		"orderId":     order.ID,
		"session_url": payURL,
	})
}

type verifyOrderRequest struct {
	OrderID string `json:"orderId"`
	Success string `json:"success"`
}

func (a *api) handleOrderVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	success := req.Success == "true"
	if err := a.orderSvc.SettleOrder(r.Context(), req.OrderID, success); err != nil {
		WriteDomainError(w, err)
		return
	}

	if success {
		WriteMessage(w, http.StatusOK, true, "Paid")
		return
	}
	WriteMessage(w, http.StatusOK, false, "Not Paid")
}

func (a *api) handleOrderGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	o, err := a.orderSvc.GetOrder(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"data": toOrderResponse(o)})
}

func (a *api) handleOrderListMine(w http.ResponseWriter, r *http.Request) {
	userID, _ := CurrentUserID(r.Context())
	orders, err := a.orderSvc.UserOrders(r.Context(), userID)
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"data": toOrderResponses(orders)})
}

func (a *api) handleOrderListAll(w http.ResponseWriter, r *http.Request) {
	orders, err := a.orderSvc.AllOrders(r.Context())
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WritePayload(w, http.StatusOK, "", map[string]any{"data": toOrderResponses(orders)})
}

type orderStatusRequest struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

func (a *api) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req orderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		WriteMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if req.OrderID == "" {
		WriteDomainError(w, domain.NewValidationError(map[string]string{"orderId": "required"}))
		return
	}

	if err := a.orderSvc.UpdateStatus(r.Context(), req.OrderID, domain.OrderStatus(req.Status)); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteMessage(w, http.StatusOK, true, "Status Updated")
}
