// Package postgres implements the agencyAuth credential and parent entity
// stores on PostgreSQL through database/sql and the pgx driver.
//
// Expected tables:
//
//	users(id, email, password_hash, first_name, last_name, phone,
//	      agency_id, role, approved, active)
//	agencies(id, name, active)
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	agencyAuth "github.com/MrEthical07/agencyAuth"
)

const uniqueViolation = "23505"

// Store is the credential and parent entity store backed by database/sql.
type Store struct {
	db *sql.DB
}

var (
	_ agencyAuth.CredentialStore    = (*Store)(nil)
	_ agencyAuth.CredentialCreator  = (*Store)(nil)
	_ agencyAuth.ParentEntityStore  = (*Store)(nil)
	_ agencyAuth.ParentEntityLister = (*Store)(nil)
)

// Open connects with the pgx driver. The pool is sized for a single web
// process.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// New wraps an existing handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the handle for migrations and health checks.
func (s *Store) DB() *sql.DB { return s.db }

// FindByIdentifier reads the user and its agency in one query. The email
// comparison is case-insensitive.
func (s *Store) FindByIdentifier(ctx context.Context, identifier string) (agencyAuth.CredentialRecord, error) {
	var (
		rec          agencyAuth.CredentialRecord
		role         string
		phone        sql.NullString
		agencyID     sql.NullString
		agencyName   sql.NullString
		agencyActive sql.NullBool
	)

	err := s.db.QueryRowContext(ctx, `
		select u.id, u.password_hash, u.active, u.approved, u.role,
		       u.first_name, u.last_name, u.email, u.phone,
		       u.agency_id, a.name, a.active
		from users u
		left join agencies a on a.id = u.agency_id
		where lower(u.email) = lower($1)
	`, strings.TrimSpace(identifier)).Scan(
		&rec.SubjectID, &rec.PasswordHash, &rec.Active, &rec.Approved, &role,
		&rec.FirstName, &rec.LastName, &rec.Email, &phone,
		&agencyID, &agencyName, &agencyActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return agencyAuth.CredentialRecord{}, agencyAuth.ErrUserNotFound
	}
	if err != nil {
		return agencyAuth.CredentialRecord{}, fmt.Errorf("postgres: find user: %w", err)
	}

	rec.Role, _ = agencyAuth.ParseRole(role)
	rec.Phone = phone.String
	rec.ParentEntityID = agencyID.String
	rec.ParentEntityName = agencyName.String
	rec.ParentEntityActive = agencyActive.Valid && agencyActive.Bool
	return rec, nil
}

// UpdatePasswordHash replaces the stored hash. An unknown subject yields
// ErrUserNotFound.
func (s *Store) UpdatePasswordHash(ctx context.Context, subjectID, newHash string) error {
	res, err := s.db.ExecContext(ctx, `update users set password_hash = $1 where id = $2`, newHash, subjectID)
	if err != nil {
		return fmt.Errorf("postgres: update password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: update password hash: %w", err)
	}
	if n == 0 {
		return agencyAuth.ErrUserNotFound
	}
	return nil
}

// Create inserts a new user. A taken email yields ErrAccountExists whether
// it is caught by the pre-check or by the unique index.
func (s *Store) Create(ctx context.Context, nc agencyAuth.NewCredential) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from users where lower(email) = lower($1))`, nc.Email,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres: check email: %w", err)
	}
	if exists {
		return agencyAuth.ErrAccountExists
	}

	var agencyID any
	if nc.ParentEntityID != "" {
		agencyID = nc.ParentEntityID
	}
	var phone any
	if nc.Phone != "" {
		phone = nc.Phone
	}

	_, err = s.db.ExecContext(ctx, `
		insert into users (id, email, password_hash, first_name, last_name, phone, agency_id, role, approved, active)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, nc.SubjectID, nc.Email, nc.PasswordHash, nc.FirstName, nc.LastName, phone, agencyID,
		nc.Role.String(), nc.Approved, nc.Active)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return agencyAuth.ErrAccountExists
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	return nil
}

// IsActive reports false, nil for an unknown agency.
func (s *Store) IsActive(ctx context.Context, parentEntityID string) (bool, error) {
	var active bool
	err := s.db.QueryRowContext(ctx, `select active from agencies where id = $1`, parentEntityID).Scan(&active)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: agency state: %w", err)
	}
	return active, nil
}

func (s *Store) ActiveParentEntities(ctx context.Context) ([]agencyAuth.ParentEntity, error) {
	rows, err := s.db.QueryContext(ctx, `select id, name from agencies where active = true order by name`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list agencies: %w", err)
	}
	defer rows.Close()

	out := make([]agencyAuth.ParentEntity, 0)
	for rows.Next() {
		var p agencyAuth.ParentEntity
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("postgres: list agencies: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list agencies: %w", err)
	}
	return out, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
