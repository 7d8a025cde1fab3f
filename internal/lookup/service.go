// Package lookup fronts the downstream identity service with a circuit
// breaker and deterministic safe fallbacks.
package lookup

import "context"

// Profile is the downstream service's view of a user.
type Profile struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// Service is the remote downstream identity service. Transport failures
// surface as errors; a healthy "no such user" answer is (nil, nil).
type Service interface {
	GetByID(ctx context.Context, id int64) (*Profile, error)
	GetByIDs(ctx context.Context, ids []int64) ([]Profile, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
}
