package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/safar/framely/internal/httpx"
	"github.com/safar/framely/internal/service"
)

type createOrderRequest struct {
	CustomerName string             `json:"customerName" validate:"max=100"`
	Email        string             `json:"email" validate:"omitempty,email,max=100"`
	MobileNumber string             `json:"mobileNumber" validate:"max=20"`
	Address      string             `json:"address" validate:"max=250"`
	Items        []orderLineRequest `json:"items"`
}

type orderLineRequest struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (req createOrderRequest) input() service.CreateOrderInput {
	in := service.CreateOrderInput{
		CustomerName: req.CustomerName,
		Email:        req.Email,
		MobileNumber: req.MobileNumber,
		Address:      req.Address,
		Items:        make([]service.OrderLineInput, len(req.Items)),
	}
	for i, item := range req.Items {
		in.Items[i] = service.OrderLineInput{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return in
}

func (h *handlers) listOrders(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page")
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	size, err := queryInt(r, "pageSize")
	if err != nil {
		writeBadRequest(w, r, err.Error())
		return
	}
	q := r.URL.Query()

	result, err := h.orders.List(r.Context(), caller(r), service.ListOrdersQuery{
		Page:      page,
		PageSize:  size,
		Status:    q.Get("status"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *handlers) myOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListMine(r.Context(), caller(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *handlers) userOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), caller(r), strings.TrimSpace(chi.URLParam(r, "userId")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, orders)
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid order id")
		return
	}
	order, err := h.orders.Get(r.Context(), caller(r), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}
	order, err := h.orders.Create(r.Context(), caller(r), req.input())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("%s/orders/%d", apiPrefix, order.ID))
	httpx.WriteJSON(w, http.StatusCreated, order)
}

func (h *handlers) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid order id")
		return
	}
	if err := h.orders.UpdateStatus(r.Context(), caller(r), id, r.URL.Query().Get("newStatus")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// cancelOrder deletes the order for admins and cancels it for its owner.
// Both outcomes answer 204.
func (h *handlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeBadRequest(w, r, "invalid order id")
		return
	}
	if _, err := h.orders.CancelOrDelete(r.Context(), caller(r), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
