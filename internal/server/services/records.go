// Package services contains server-side logic over the SQL repositories.
// This file implements RecordService, the PostgreSQL-backed record store.
package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/dbx"
	"github.com/MobilityFirst/GNS-sub011/internal/logging"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
	"github.com/MobilityFirst/GNS-sub011/internal/server/repositories/repomanager"
	"github.com/MobilityFirst/GNS-sub011/internal/server/responsecode"
	"github.com/MobilityFirst/GNS-sub011/internal/server/store"
	"github.com/MobilityFirst/GNS-sub011/internal/server/updates"
)

// RecordService implements store.RemoteStore and store.Scanner on the
// records table. Updates lock the row and run inside one transaction.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *RecordService {
	return &RecordService{db: db, repomanager: m, logger: l.With("module", "record_service")}
}

func (s *RecordService) CreateRecord(ctx context.Context, key string, record store.Record) store.Result {
	err := s.repomanager.Records(s.db).Insert(ctx, &models.RecordRow{Key: key, Doc: record})
	switch {
	case err == nil:
		return store.Value(nil)
	case errors.Is(err, common.ErrorAlreadyExists):
		return store.Coded(responsecode.DuplicateID, nil)
	default:
		return s.failure(ctx, "create", key, err)
	}
}

func (s *RecordService) ReadField(ctx context.Context, key, field string) store.Result {
	row, res := s.load(ctx, key)
	if !res.OK() {
		return res
	}
	return store.FieldOf(row.Doc, field)
}

func (s *RecordService) ReadRecord(ctx context.Context, key string) store.Result {
	row, res := s.load(ctx, key)
	if !res.OK() {
		return res
	}
	return store.WithRecord(row.Doc)
}

// upsertAttempts bounds retries of an upsert that lost a create race.
const upsertAttempts = 3

func (s *RecordService) UpdateField(ctx context.Context, key, field string, u updates.Update) store.Result {
	return s.updateField(ctx, key, field, u, upsertAttempts)
}

func (s *RecordService) updateField(ctx context.Context, key, field string, u updates.Update, attempts int) store.Result {
	result := store.Value(nil)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Records(tx)

		row, err := repo.GetForUpdate(ctx, key)
		exists := err == nil
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		var current store.Record
		if exists {
			current = row.Doc
		}
		working, write, code := store.Mutate(current, field, u)
		if code.IsError() {
			result = store.Coded(code, nil)
			return dbx.ErrRollback
		}
		if !write {
			return nil
		}

		next := &models.RecordRow{Key: key, Doc: working}
		if exists {
			return repo.Save(ctx, next)
		}
		// Upsert of a missing key. A concurrent create wins; retry as update.
		err = repo.Insert(ctx, next)
		if errors.Is(err, common.ErrorAlreadyExists) {
			return common.ErrorVersionConflict
		}
		return err
	})

	switch {
	case err == nil:
		return result
	case errors.Is(err, common.ErrorVersionConflict) && attempts > 1:
		return s.updateField(ctx, key, field, u, attempts-1)
	default:
		return s.failure(ctx, "update", key, err)
	}
}

func (s *RecordService) DeleteRecord(ctx context.Context, key string) store.Result {
	err := s.repomanager.Records(s.db).Delete(ctx, key)
	switch {
	case err == nil:
		return store.Value(nil)
	case errors.Is(err, common.ErrorNotFound):
		return store.Coded(responsecode.BadGuid, nil)
	default:
		return s.failure(ctx, "delete", key, err)
	}
}

func (s *RecordService) KeysWithField(ctx context.Context, field string) ([]string, error) {
	return s.repomanager.Records(s.db).ListKeysWithField(ctx, field)
}

func (s *RecordService) load(ctx context.Context, key string) (*models.RecordRow, store.Result) {
	row, err := s.repomanager.Records(s.db).Get(ctx, key)
	switch {
	case err == nil:
		return row, store.Value(nil)
	case errors.Is(err, common.ErrorNotFound):
		return nil, store.Coded(responsecode.BadGuid, nil)
	default:
		return nil, s.failure(ctx, "read", key, err)
	}
}

func (s *RecordService) failure(ctx context.Context, op, key string, err error) store.Result {
	s.logger.Error(ctx, "record store failure", "op", op, "key", key, "err", err)
	return store.Failure(err)
}
