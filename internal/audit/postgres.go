package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"seclock.org/internal/ids"
)

const stmtTimeout = 5 * time.Second

var _ Store = (*PGStore)(nil)

// PGStore implements Store on PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Append(ctx context.Context, e *Entry) error {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	return appendEntry(ctx, s.db, e)
}

// AppendTx inserts an entry inside an existing transaction. State-machine
// stores use this so a row mutation and its audit record commit together.
func AppendTx(ctx context.Context, tx *sql.Tx, e *Entry) error {
	return appendEntry(ctx, tx, e)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func appendEntry(ctx context.Context, db execer, e *Entry) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	var detail []byte
	if len(e.Detail) > 0 {
		b, err := json.Marshal(e.Detail)
		if err != nil {
			// The entry still lands; the unserializable payload is dropped
			// but the loss is visible in the operational log.
			_ = LogEvent(ctx, "audit.detail_marshal_failed", map[string]any{
				"entry_id": e.ID,
				"action":   string(e.Action),
				"error":    err.Error(),
			})
		} else {
			detail = b
		}
	}
	_, err := db.ExecContext(ctx, `
		insert into log_entries(id, user_id, lock_id, action, detail, occurred_at)
		values ($1,$2,$3,$4,$5,$6)
	`, e.ID, e.UserID, e.LockID, string(e.Action), detail, e.OccurredAt)
	return err
}

func (s *PGStore) List(ctx context.Context) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, lock_id, action, detail, occurred_at
		from log_entries
		order by occurred_at desc, id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func (s *PGStore) ListForLock(ctx context.Context, lockID string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, stmtTimeout)
	defer cancel()
	rows, err := s.db.QueryContext(ctx, `
		select id, user_id, lock_id, action, detail, occurred_at
		from log_entries
		where lock_id = $1
		order by occurred_at desc, id desc
	`, lockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var res []Entry
	for rows.Next() {
		var (
			e      Entry
			user   sql.NullString
			lock   sql.NullString
			action string
			detail []byte
		)
		if err := rows.Scan(&e.ID, &user, &lock, &action, &detail, &e.OccurredAt); err != nil {
			return nil, err
		}
		if user.Valid {
			e.UserID = &user.String
		}
		if lock.Valid {
			e.LockID = &lock.String
		}
		e.Action = Action(action)
		if len(detail) > 0 {
			_ = json.Unmarshal(detail, &e.Detail)
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
