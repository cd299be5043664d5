package httpx

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dimasprawira/go-marketplace-orders/internal/orders"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the coordinator's tagged errors to status codes. Storage
// detail never reaches the client.
func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

func statusFor(err error) int {
	var (
		pnf *orders.ProductNotFoundError
		ins *orders.InsufficientStockError
		inv *orders.InvalidQuantityError
	)
	switch {
	case errors.Is(err, orders.ErrEmptyOrder),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.As(err, &pnf),
		errors.As(err, &ins),
		errors.As(err, &inv):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, orders.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
