package domain

// Role is the closed set of caller roles. All permission decisions consume
// this type through one authorization function (orders.Allowed) instead of
// re-deriving string comparisons per handler.
type Role string

const (
	RoleStudent Role = "student"
	RoleStaff   Role = "staff"
	RoleAdmin   Role = "admin"
)

func KnownRole(r Role) bool {
	return r == RoleStudent || r == RoleStaff || r == RoleAdmin
}

// Privileged reports whether r may drive the kitchen side of the order
// lifecycle and read all orders.
func Privileged(r Role) bool {
	return r == RoleStaff || r == RoleAdmin
}

// Identity is the auth gate's output: who the caller is for the duration of
// one request. Consumed read-only by every other package.
type Identity struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}
