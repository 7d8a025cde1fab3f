package user

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store with the same uniqueness semantics as
// the Postgres implementation. It backs unit tests and local development.
type MemoryStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*Record

	// Optional failure injection for tests.
	SaveErr error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1, records: make(map[int64]*Record)}
}

func clone(r *Record) *Record {
	cp := *r
	if r.LastLoginAt != nil {
		t := *r.LastLoginAt
		cp.LastLoginAt = &t
	}
	return &cp
}

func (s *MemoryStore) FindByID(ctx context.Context, id int64) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok || r.Deleted {
		return nil, ErrNoRecord
	}
	return clone(r), nil
}

func (s *MemoryStore) FindByIDs(ctx context.Context, ids []int64) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r, ok := s.records[id]; ok && !r.Deleted {
			out = append(out, *clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) FindBySubjectID(ctx context.Context, subjectID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if !r.Deleted && r.SubjectID != "" && r.SubjectID == subjectID {
			return clone(r), nil
		}
	}
	return nil, ErrNoRecord
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string, includeDeleted bool) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if strings.EqualFold(r.Username, username) && (includeDeleted || !r.Deleted) {
			return clone(r), nil
		}
	}
	return nil, ErrNoRecord
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.records {
		if strings.EqualFold(r.Email, email) && (includeDeleted || !r.Deleted) {
			return clone(r), nil
		}
	}
	return nil, ErrNoRecord
}

func (s *MemoryStore) ExistsByUsername(ctx context.Context, username string, includeDeleted bool) (bool, error) {
	_, err := s.FindByUsername(ctx, username, includeDeleted)
	if err == ErrNoRecord {
		return false, nil
	}
	return err == nil, err
}

func (s *MemoryStore) ExistsByEmail(ctx context.Context, email string, includeDeleted bool) (bool, error) {
	_, err := s.FindByEmail(ctx, email, includeDeleted)
	if err == ErrNoRecord {
		return false, nil
	}
	return err == nil, err
}

func (s *MemoryStore) Save(ctx context.Context, r *Record) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.SaveErr != nil {
		return nil, s.SaveErr
	}

	if err := s.checkUnique(r); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if r.ID == 0 {
		r.ID = s.nextID
		s.nextID++
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	s.records[r.ID] = clone(r)
	return clone(r), nil
}

func (s *MemoryStore) checkUnique(r *Record) error {
	if r.Deleted {
		return nil
	}
	for id, other := range s.records {
		if id == r.ID || other.Deleted {
			continue
		}
		if strings.EqualFold(other.Username, r.Username) {
			return ErrDuplicate
		}
		if strings.EqualFold(other.Email, r.Email) {
			return ErrDuplicate
		}
		if r.SubjectID != "" && other.SubjectID == r.SubjectID {
			return ErrDuplicate
		}
	}
	return nil
}
