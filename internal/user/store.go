package user

import (
	"context"
	"errors"
)

// ErrDuplicate is returned by Save when a unique constraint on username,
// email or subject id is violated. Callers decide whether that is a
// conflict to surface or a race to converge.
var ErrDuplicate = errors.New("user: duplicate record")

// ErrNoRecord is returned by the Find methods when nothing matches.
var ErrNoRecord = errors.New("user: no record")

// Store is the local user record repository. Lookups exclude soft-deleted
// records unless includeDeleted is set; the existence checks take the same
// flag so registration can treat deleted usernames as still taken.
type Store interface {
	FindByID(ctx context.Context, id int64) (*Record, error)
	// FindByIDs returns the non-deleted records matching ids, in id order.
	// Missing ids are skipped, not reported.
	FindByIDs(ctx context.Context, ids []int64) ([]Record, error)
	FindBySubjectID(ctx context.Context, subjectID string) (*Record, error)
	FindByUsername(ctx context.Context, username string, includeDeleted bool) (*Record, error)
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*Record, error)

	ExistsByUsername(ctx context.Context, username string, includeDeleted bool) (bool, error)
	ExistsByEmail(ctx context.Context, email string, includeDeleted bool) (bool, error)

	// Save inserts the record when ID is zero (assigning ID, CreatedAt and
	// UpdatedAt) and updates it otherwise. Unique violations map to
	// ErrDuplicate. The write is a single atomic statement.
	Save(ctx context.Context, r *Record) (*Record, error)
}
