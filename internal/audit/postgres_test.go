package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"seclock.org/internal/obs"
)

func TestPGAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	userID := "user-1"
	mock.ExpectExec("insert into log_entries").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), nil, "LOGIN", []byte(nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	e := &Entry{UserID: &userID, Action: ActionLogin, OccurredAt: time.Now().UTC()}
	if err := store.Append(context.Background(), e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if e.ID == "" {
		t.Fatal("expected an assigned entry id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestPGAppendLogsUnserializableDetail(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	// The row still lands with a null detail column.
	mock.ExpectExec("insert into log_entries").
		WithArgs(sqlmock.AnyArg(), nil, nil, "UPDATE", []byte(nil), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewPGStore(db)
	e := &Entry{
		Action:     ActionUpdate,
		Detail:     map[string]any{"bad": make(chan int)},
		OccurredAt: time.Now().UTC(),
	}
	if err := store.Append(context.Background(), e); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
	if !strings.Contains(buf.String(), "audit.detail_marshal_failed") {
		t.Fatalf("expected operational log line, got %q", buf.String())
	}
}
