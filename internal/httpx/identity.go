package httpx

import (
	"errors"
	"net/http"

	"github.com/dimasprawira/go-marketplace-orders/internal/orders"
)

// Requester is the identity resolved by the upstream auth gateway. This
// service never sees credentials: the gateway verifies the session token and
// forwards id and role as headers.
type Requester struct {
	ID   string
	Role orders.Role
}

const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

var errUnauthenticated = errors.New("missing or invalid identity headers")

func RequesterFrom(r *http.Request) (Requester, error) {
	id := r.Header.Get(HeaderUserID)
	role := orders.Role(r.Header.Get(HeaderUserRole))
	if id == "" || !orders.ValidRole(role) {
		return Requester{}, errUnauthenticated
	}
	return Requester{ID: id, Role: role}, nil
}
