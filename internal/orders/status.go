package orders

type Status string

const (
	StatusPending   Status = "pending"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// ValidStatus reports whether s is one of the known order statuses.
// Transitions are deliberately unconstrained: sellers may move an order
// back and forth between any of the three states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered:
		return true
	}
	return false
}

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}
