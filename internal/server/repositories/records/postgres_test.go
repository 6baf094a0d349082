package records

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	insertQ = `(?s)^INSERT\s+INTO\s+records\s*\(key,\s*doc\)\s*VALUES\s*\(\$1,\s*\$2\)\s*ON\s+CONFLICT\s*\(key\)\s*DO\s+NOTHING\s*RETURNING\s+created_at,\s*updated_at\s*$`
	getQ    = `(?s)^SELECT\s+key,\s*doc,\s*created_at,\s*updated_at\s+FROM\s+records\s+WHERE\s+key\s*=\s*\$1\s*$`
	lockQ   = `(?s)^SELECT\s+key,\s*doc,\s*created_at,\s*updated_at\s+FROM\s+records\s+WHERE\s+key\s*=\s*\$1\s+FOR\s+UPDATE\s*$`
	saveQ   = `(?s)^UPDATE\s+records\s+SET\s+doc\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+key\s*=\s*\$1\s*$`
	deleteQ = `(?s)^DELETE\s+FROM\s+records\s+WHERE\s+key\s*=\s*\$1\s*$`
	listQ   = `(?s)^SELECT\s+key\s+FROM\s+records\s+WHERE\s+doc\s+#>\s+string_to_array\(\$1,\s*'\.'\)\s+IS\s+NOT\s+NULL\s+ORDER\s+BY\s+key\s*$`
)

func TestInsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(insertQ).
		WithArgs("alice@example.com", []byte(`{"_GNS_guid":"ABC"}`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	row := &models.RecordRow{Key: "alice@example.com", Doc: map[string]any{"_GNS_guid": "ABC"}}
	if err := repo.Insert(context.Background(), row); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if !row.CreatedAt.Equal(now) || !row.UpdatedAt.Equal(now) {
		t.Fatalf("timestamps not scanned: %+v", row)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsert_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("k", []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))

	err := repo.Insert(context.Background(), &models.RecordRow{Key: "k"})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("expected ErrorAlreadyExists, got %v", err)
	}
}

func TestInsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	err := repo.Insert(context.Background(), &models.RecordRow{Key: "k", Doc: map[string]any{}})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGet_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(getQ).
		WithArgs("G1").
		WillReturnRows(sqlmock.NewRows([]string{"key", "doc", "created_at", "updated_at"}).
			AddRow("G1", []byte(`{"_GNS_groups":["G2"],"n":1}`), now, now))

	got, err := repo.Get(context.Background(), "G1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	want := &models.RecordRow{
		Key:       "G1",
		Doc:       map[string]any{"_GNS_groups": []any{"G2"}, "n": float64(1)},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(getQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestGet_BadDocument(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(getQ).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"key", "doc", "created_at", "updated_at"}).AddRow("k", []byte(`{`), now, now))

	if _, err := repo.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(lockQ).
		WithArgs("k").
		WillReturnRows(sqlmock.NewRows([]string{"key", "doc", "created_at", "updated_at"}).AddRow("k", nil, now, now))

	got, err := repo.GetForUpdate(context.Background(), "k")
	if err != nil {
		t.Fatalf("GetForUpdate error: %v", err)
	}
	if len(got.Doc) != 0 || got.Doc == nil {
		t.Fatalf("expected empty non-nil doc, got %#v", got.Doc)
	}
}

func TestSave(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(saveQ).WithArgs("k", []byte(`{"a":"b"}`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(saveQ).WithArgs("gone", []byte(`{}`)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Save(context.Background(), &models.RecordRow{Key: "k", Doc: map[string]any{"a": "b"}}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := repo.Save(context.Background(), &models.RecordRow{Key: "gone"}); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("k").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQ).WithArgs("k").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteQ).WithArgs("k").WillReturnError(errors.New("db down"))

	ctx := context.Background()
	if err := repo.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(ctx, "k"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
	if err := repo.Delete(ctx, "k"); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestListKeysWithField(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).
		WithArgs(common.PrimaryGuidField).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("A").AddRow("B"))

	got, err := repo.ListKeysWithField(context.Background(), common.PrimaryGuidField)
	if err != nil {
		t.Fatalf("ListKeysWithField error: %v", err)
	}
	if diff := cmp.Diff([]string{"A", "B"}, got); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestListKeysWithField_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).
		WithArgs("f").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("A").RowError(0, errors.New("broken")))

	if _, err := repo.ListKeysWithField(context.Background(), "f"); err == nil {
		t.Fatal("expected row error")
	}
}
