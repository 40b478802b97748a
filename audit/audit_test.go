package audit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestEnsureSchemaExecutesDDL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	sx := sqlx.NewDb(db, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS warning_log")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	log := NewWarningLog(context.Background(), sx)
	if err := log.EnsureSchema(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestOnWarningInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	sx := sqlx.NewDb(db, "mysql")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO warning_log")).
		WithArgs("http.legacy-port", "deprecated", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	log := NewWarningLog(context.Background(), sx)
	log.OnWarning("http.legacy-port", "deprecated")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRecentReadsBackRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	sx := sqlx.NewDb(db, "mysql")

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "property_name", "message", "occurred_at"}).
		AddRow(1, "http.legacy-port", "deprecated", now)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, property_name, message, occurred_at FROM warning_log")).
		WithArgs(10).
		WillReturnRows(rows)

	log := NewWarningLog(context.Background(), sx)
	entries, err := log.Recent(10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 || entries[0].PropertyName != "http.legacy-port" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}
