package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"seclock.org/internal/ids"
)

const (
	pgErrUniqueViolation = "23505"

	stmtTimeout = 5 * time.Second
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const userColumns = `
	u.id, u.login, u.password_hash, u.email, u.display_name,
	p.name, u.token, u.token_expiry, u.created_at, u.updated_at`

func (s *PGStore) CreateUser(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()

	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users(id, login, password_hash, email, display_name, privilege_id)
		values ($1,$2,$3,$4,$5,(select id from privileges where name=$6))
		returning created_at, updated_at
	`, u.ID, u.Login, u.PasswordHash, u.Email, u.DisplayName, u.Privilege)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *PGStore) FindUserByID(ctx context.Context, id string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users u join privileges p on p.id = u.privilege_id
		where u.id = $1
	`, id)
	return scanUser(row)
}

func (s *PGStore) FindUserByLogin(ctx context.Context, login string) (*User, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	row := s.db.QueryRowContext(ctx, `
		select `+userColumns+`
		from users u join privileges p on p.id = u.privilege_id
		where u.login = $1
	`, login)
	return scanUser(row)
}

func (s *PGStore) DeleteUser(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) SetActiveToken(ctx context.Context, userID, token string, expiry time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	res, err := s.db.ExecContext(ctx, `
		update users set token = $1, token_expiry = $2, updated_at = now()
		where id = $3
	`, token, expiry, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsurePrivilege is the bootstrap-on-miss path for the "default" tier.
// Insert-on-conflict-do-nothing followed by a read keeps it idempotent under
// concurrent first registrations.
func (s *PGStore) EnsurePrivilege(ctx context.Context, name, description string) (*Privilege, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, `
		insert into privileges(id, name, description)
		values ($1,$2,$3)
		on conflict (name) do nothing
	`, ids.New(), name, description); err != nil {
		return nil, err
	}
	var p Privilege
	row := s.db.QueryRowContext(ctx, `
		select id, name, description, created_at from privileges where name = $1
	`, name)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanUser(row *sql.Row) (*User, error) {
	var (
		u      User
		token  sql.NullString
		expiry sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Email, &u.DisplayName,
		&u.Privilege, &token, &expiry, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if token.Valid {
		u.Token = &token.String
	}
	if expiry.Valid {
		t := expiry.Time
		u.TokenExpiry = &t
	}
	return &u, nil
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
