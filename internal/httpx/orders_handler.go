package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/dimasprawira/go-marketplace-orders/internal/orders"
	"github.com/dimasprawira/go-marketplace-orders/internal/redisx"
)

type OrdersHandler struct {
	Coordinator *orders.Coordinator
	Store       orders.OrderStore
	Redis       *redis.Client
}

type PlaceOrderReq struct {
	Items []orders.ItemInput `json:"items"`
}

type UpdateStatusReq struct {
	Status orders.Status `json:"status"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrderStatus)
	r.Put("/orders/{id}", h.updateStatus)
	r.Delete("/orders/{id}", h.deleteOrder)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	who, err := RequesterFrom(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	var req PlaceOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.PlaceOrder(ctx, who.ID, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	who, err := RequesterFrom(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Coordinator.ListOrders(ctx, who.ID, who.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB is the source of truth
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	o, err := h.Store.Get(ctx, orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	who, err := RequesterFrom(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	orderID := chi.URLParam(r, "id")
	var req UpdateStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.UpdateStatus(ctx, who.ID, who.Role, orderID, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	h.cacheStatus(ctx, o.ID, o.Status)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	who, err := RequesterFrom(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Coordinator.DeleteOrder(ctx, who.ID, who.Role, orderID); err != nil {
		writeError(w, err)
		return
	}
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, orderID string, s orders.Status) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	b, _ := json.Marshal(map[string]any{"status": s})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
