package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/dbx"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
	"github.com/MobilityFirst/GNS-sub011/internal/server/repositories/records"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

var (
	_ store.RemoteStore = (*RecordService)(nil)
	_ store.Scanner     = (*RecordService)(nil)
)

// --- helpers ---

type fakeRecordsRepo struct {
	rows map[string]map[string]any
	err  error

	locked []string
	saved  []string

	// racer lands just before the next Insert, like a concurrent create.
	racer map[string]any
}

func (f *fakeRecordsRepo) Insert(_ context.Context, row *models.RecordRow) error {
	if f.err != nil {
		return f.err
	}
	if f.racer != nil {
		f.rows[row.Key], f.racer = f.racer, nil
	}
	if _, ok := f.rows[row.Key]; ok {
		return common.ErrorAlreadyExists
	}
	f.rows[row.Key] = updates.CopyRecord(row.Doc)
	return nil
}

func (f *fakeRecordsRepo) Get(_ context.Context, key string) (*models.RecordRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.rows[key]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &models.RecordRow{Key: key, Doc: updates.CopyRecord(doc)}, nil
}

func (f *fakeRecordsRepo) GetForUpdate(ctx context.Context, key string) (*models.RecordRow, error) {
	f.locked = append(f.locked, key)
	return f.Get(ctx, key)
}

func (f *fakeRecordsRepo) Save(_ context.Context, row *models.RecordRow) error {
	if _, ok := f.rows[row.Key]; !ok {
		return common.ErrorNotFound
	}
	f.saved = append(f.saved, row.Key)
	f.rows[row.Key] = updates.CopyRecord(row.Doc)
	return nil
}

func (f *fakeRecordsRepo) Delete(_ context.Context, key string) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.rows[key]; !ok {
		return common.ErrorNotFound
	}
	delete(f.rows, key)
	return nil
}

func (f *fakeRecordsRepo) ListKeysWithField(_ context.Context, field string) ([]string, error) {
	var keys []string
	for k, doc := range f.rows {
		if _, ok := updates.GetPath(doc, field); ok {
			keys = append(keys, k)
		}
	}
	return keys, f.err
}

type fakeRepoManager struct{ r *fakeRecordsRepo }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Records(dbx.DBTX) records.Repository         { return m.r }

func newRecordService(t *testing.T, rows map[string]map[string]any) (*RecordService, *fakeRecordsRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	if rows == nil {
		rows = map[string]map[string]any{}
	}
	repo := &fakeRecordsRepo{rows: rows}
	return NewRecordService(db, &fakeRepoManager{r: repo}, logging.NopLogger{}), repo, mock
}

// --- tests ---

func TestRecordService_Create(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newRecordService(t, nil)

	assert.True(t, s.CreateRecord(ctx, "alice", store.Record{"_GNS_guid": "A"}).OK())
	assert.Equal(t, responsecode.DuplicateID, s.CreateRecord(ctx, "alice", store.Record{}).Code)

	repo.err = errors.New("db down")
	res := s.CreateRecord(ctx, "bob", nil)
	assert.Equal(t, responsecode.UnspecifiedError, res.Code)
	assert.EqualError(t, res.Err, "db down")
}

func TestRecordService_Read(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newRecordService(t, map[string]map[string]any{
		"G": {"contact": map[string]any{"email": []any{"a@example.com"}}},
	})

	res := s.ReadField(ctx, "G", "contact.email")
	require.True(t, res.OK())
	assert.Equal(t, []any{"a@example.com"}, res.Value)

	assert.Equal(t, responsecode.FieldNotFound, s.ReadField(ctx, "G", "phone").Code)
	assert.Equal(t, responsecode.BadGuid, s.ReadField(ctx, "missing", "phone").Code)

	res = s.ReadRecord(ctx, "G")
	require.True(t, res.OK())
	assert.Contains(t, res.Record, "contact")
	assert.Equal(t, responsecode.BadGuid, s.ReadRecord(ctx, "missing").Code)
}

func TestRecordService_UpdateExisting(t *testing.T) {
	ctx := context.Background()
	s, repo, mock := newRecordService(t, map[string]map[string]any{"G": {"tags": []any{"a"}}})
	mock.ExpectBegin()
	mock.ExpectCommit()

	res := s.UpdateField(ctx, "G", "tags", updates.With(updates.Append, "b"))

	require.True(t, res.OK(), res.Code.Name())
	assert.Equal(t, []any{"a", "b"}, repo.rows["G"]["tags"])
	assert.Equal(t, []string{"G"}, repo.locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_UpdateUnchangedSkipsSave(t *testing.T) {
	ctx := context.Background()
	s, repo, mock := newRecordService(t, map[string]map[string]any{"G": {"tags": []any{"a"}}})
	mock.ExpectBegin()
	mock.ExpectCommit()

	require.True(t, s.UpdateField(ctx, "G", "tags", updates.With(updates.Append, "a")).OK())
	assert.Empty(t, repo.saved)
}

func TestRecordService_UpdateMissingRecord(t *testing.T) {
	ctx := context.Background()
	s, repo, mock := newRecordService(t, nil)

	mock.ExpectBegin()
	mock.ExpectRollback()
	assert.Equal(t, responsecode.BadGuid, s.UpdateField(ctx, "G", "tags", updates.With(updates.Append, "a")).Code)

	mock.ExpectBegin()
	mock.ExpectCommit()
	require.True(t, s.UpdateField(ctx, "G", "tags", updates.With(updates.AppendOrCreate, "a")).OK())
	assert.Equal(t, []any{"a"}, repo.rows["G"]["tags"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_UpsertLosingCreateRaceRetries(t *testing.T) {
	ctx := context.Background()
	s, repo, mock := newRecordService(t, nil)
	repo.racer = map[string]any{"tags": []any{"first"}}

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	res := s.UpdateField(ctx, "G", "tags", updates.With(updates.AppendOrCreate, "second"))

	require.True(t, res.OK(), res.Code.Name())
	assert.Equal(t, []any{"first", "second"}, repo.rows["G"]["tags"])
	assert.Equal(t, []string{"G", "G"}, repo.locked)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_UpdateBadFieldRollsBack(t *testing.T) {
	ctx := context.Background()
	s, repo, mock := newRecordService(t, map[string]map[string]any{"G": {"name": "scalar"}})
	mock.ExpectBegin()
	mock.ExpectRollback()

	res := s.UpdateField(ctx, "G", "name", updates.With(updates.Append, "x"))

	assert.Equal(t, responsecode.BadField, res.Code)
	assert.Equal(t, "scalar", repo.rows["G"]["name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_UpdateRepoError(t *testing.T) {
	ctx := context.Background()
	s, repo, mock := newRecordService(t, map[string]map[string]any{"G": {}})
	repo.err = errors.New("db down")
	mock.ExpectBegin()
	mock.ExpectRollback()

	res := s.UpdateField(ctx, "G", "tags", updates.With(updates.AppendOrCreate, "a"))

	assert.Equal(t, responsecode.UnspecifiedError, res.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordService_UpdateBeginError(t *testing.T) {
	s, _, mock := newRecordService(t, map[string]map[string]any{"G": {}})
	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	res := s.UpdateField(context.Background(), "G", "tags", updates.With(updates.Append, "a"))
	assert.Equal(t, responsecode.UnspecifiedError, res.Code)
}

func TestRecordService_DeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	s, repo, _ := newRecordService(t, map[string]map[string]any{
		"S": {common.PrimaryGuidField: "A"},
		"A": {},
	})

	keys, err := s.KeysWithField(ctx, common.PrimaryGuidField)
	require.NoError(t, err)
	assert.Equal(t, []string{"S"}, keys)

	assert.True(t, s.DeleteRecord(ctx, "S").OK())
	assert.Equal(t, responsecode.BadGuid, s.DeleteRecord(ctx, "S").Code)

	repo.err = errors.New("db down")
	assert.Equal(t, responsecode.UnspecifiedError, s.DeleteRecord(ctx, "A").Code)
}
