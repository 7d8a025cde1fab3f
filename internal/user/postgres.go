package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"identity-service/internal/db"

	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// PostgresStore is the canonical Store backed by the users table.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `
	id, username, email, COALESCE(subject_id, ''),
	first_name, last_name, phone_number,
	country, city, state, street_address, postal_code,
	role, is_active, is_verified, password_hash,
	last_login_at, is_deleted, created_at, updated_at
`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		r         Record
		lastLogin sql.NullTime
	)

	err := row.Scan(
		&r.ID, &r.Username, &r.Email, &r.SubjectID,
		&r.FirstName, &r.LastName, &r.PhoneNumber,
		&r.Country, &r.City, &r.State, &r.StreetAddress, &r.PostalCode,
		&r.Role, &r.Active, &r.Verified, &r.PasswordHash,
		&lastLogin, &r.Deleted, &r.CreatedAt, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, err
	}

	if lastLogin.Valid {
		t := lastLogin.Time
		r.LastLoginAt = &t
	}

	return &r, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE id = $1 AND NOT is_deleted
	`, id)
	return scanRecord(row)
}

func (s *PostgresStore) FindByIDs(ctx context.Context, ids []int64) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE id = ANY($1) AND NOT is_deleted
		ORDER BY id
	`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindBySubjectID(ctx context.Context, subjectID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE subject_id = $1 AND NOT is_deleted
	`, subjectID)
	return scanRecord(row)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string, includeDeleted bool) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE LOWER(username) = LOWER($1)
		  AND (is_deleted = false OR $2)
		ORDER BY is_deleted ASC
		LIMIT 1
	`, username, includeDeleted)
	return scanRecord(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
		  AND (is_deleted = false OR $2)
		ORDER BY is_deleted ASC
		LIMIT 1
	`, email, includeDeleted)
	return scanRecord(row)
}

func (s *PostgresStore) ExistsByUsername(ctx context.Context, username string, includeDeleted bool) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE LOWER(username) = LOWER($1)
			  AND (is_deleted = false OR $2)
		)
	`, username, includeDeleted).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) ExistsByEmail(ctx context.Context, email string, includeDeleted bool) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE LOWER(email) = LOWER($1)
			  AND (is_deleted = false OR $2)
		)
	`, email, includeDeleted).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) Save(ctx context.Context, r *Record) (*Record, error) {
	if r.ID == 0 {
		return s.insert(ctx, r)
	}
	return s.update(ctx, r)
}

func (s *PostgresStore) insert(ctx context.Context, r *Record) (*Record, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (
			username, email, subject_id,
			first_name, last_name, phone_number,
			country, city, state, street_address, postal_code,
			role, is_active, is_verified, password_hash, last_login_at
		)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at, updated_at
	`,
		r.Username, r.Email, r.SubjectID,
		r.FirstName, r.LastName, r.PhoneNumber,
		r.Country, r.City, r.State, r.StreetAddress, r.PostalCode,
		r.Role, r.Active, r.Verified, r.PasswordHash, r.LastLoginAt,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)

	if err != nil {
		return nil, translateSaveErr(err)
	}
	return r, nil
}

func (s *PostgresStore) update(ctx context.Context, r *Record) (*Record, error) {
	r.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			username = $2, email = $3, subject_id = NULLIF($4, ''),
			first_name = $5, last_name = $6, phone_number = $7,
			country = $8, city = $9, state = $10, street_address = $11, postal_code = $12,
			role = $13, is_active = $14, is_verified = $15, password_hash = $16,
			last_login_at = $17, is_deleted = $18, updated_at = $19
		WHERE id = $1
	`,
		r.ID,
		r.Username, r.Email, r.SubjectID,
		r.FirstName, r.LastName, r.PhoneNumber,
		r.Country, r.City, r.State, r.StreetAddress, r.PostalCode,
		r.Role, r.Active, r.Verified, r.PasswordHash,
		r.LastLoginAt, r.Deleted, r.UpdatedAt,
	)
	if err != nil {
		return nil, translateSaveErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrNoRecord
	}

	return r, nil
}

func translateSaveErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}
