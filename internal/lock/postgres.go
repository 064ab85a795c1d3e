package lock

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"seclock.org/internal/audit"
)

const (
	pgErrUniqueViolation = "23505"

	stmtTimeout = 5 * time.Second
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL. Every mutation runs the row write
// and the audit append inside one transaction.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, id string) (*Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	var l Lock
	row := s.db.QueryRowContext(ctx, `
		select l.id, p.name, l.is_open, l.last_modified
		from locks l join privileges p on p.id = l.privilege_id
		where l.id = $1
	`, id)
	if err := row.Scan(&l.ID, &l.OwnerPrivilege, &l.IsOpen, &l.LastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (s *PGStore) List(ctx context.Context) ([]Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		select l.id, p.name, l.is_open, l.last_modified
		from locks l join privileges p on p.id = l.privilege_id
		order by l.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []Lock
	for rows.Next() {
		var l Lock
		if err := rows.Scan(&l.ID, &l.OwnerPrivilege, &l.IsOpen, &l.LastModified); err != nil {
			return nil, err
		}
		res = append(res, l)
	}
	return res, rows.Err()
}

func (s *PGStore) Create(ctx context.Context, l *Lock, entry *audit.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		insert into locks(id, privilege_id, is_open, last_modified)
		values ($1,(select id from privileges where name=$2),false,now())
		returning last_modified
	`, l.ID, l.OwnerPrivilege)
	if err := row.Scan(&l.LastModified); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return ErrConflict
		}
		return err
	}
	if err := audit.AppendTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *PGStore) SetState(ctx context.Context, id string, open bool, entry *audit.Entry) (*Lock, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var l Lock
	row := tx.QueryRowContext(ctx, `
		update locks set is_open = $1, last_modified = now()
		where id = $2
		returning id, (select name from privileges where id = locks.privilege_id), is_open, last_modified
	`, open, id)
	if err := row.Scan(&l.ID, &l.OwnerPrivilege, &l.IsOpen, &l.LastModified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := audit.AppendTx(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PGStore) Delete(ctx context.Context, id string, entry *audit.Entry) error {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `delete from locks where id = $1`, id)
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
	// The lock row is gone; the FK has already nulled lock refs on historical
	// entries, so this entry records the id in detail only.
	entry.LockID = nil
	if entry.Detail == nil {
		entry.Detail = map[string]any{}
	}
	entry.Detail["lock_id"] = id
	if err := audit.AppendTx(ctx, tx, entry); err != nil {
		return err
	}
	return tx.Commit()
}
