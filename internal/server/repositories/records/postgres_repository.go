package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MobilityFirst/GNS-sub011/internal/common"
	"github.com/MobilityFirst/GNS-sub011/internal/dbx"
	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, row *models.RecordRow) error {
	doc, err := encodeDoc(row.Doc)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO records (key, doc)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO NOTHING
		 RETURNING created_at, updated_at
		 `

	err = r.db.QueryRowContext(ctx, query, row.Key, doc).Scan(&row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}

	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, key string) (*models.RecordRow, error) {
	query :=
		`SELECT key, doc, created_at, updated_at FROM records
		 WHERE key = $1
		 `
	return r.get(ctx, query, key)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, key string) (*models.RecordRow, error) {
	query :=
		`SELECT key, doc, created_at, updated_at FROM records
		 WHERE key = $1
		 FOR UPDATE
		 `
	return r.get(ctx, query, key)
}

func (r *PostgresRepository) get(ctx context.Context, query, key string) (*models.RecordRow, error) {
	row := &models.RecordRow{}
	var doc []byte

	err := r.db.QueryRowContext(ctx, query, key).Scan(&row.Key, &doc, &row.CreatedAt, &row.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if row.Doc, err = decodeDoc(doc); err != nil {
		return nil, err
	}
	return row, nil
}

func (r *PostgresRepository) Save(ctx context.Context, row *models.RecordRow) error {
	doc, err := encodeDoc(row.Doc)
	if err != nil {
		return err
	}

	query :=
		`UPDATE records SET doc = $2, updated_at = now()
		 WHERE key = $1
		 `

	res, err := r.db.ExecContext(ctx, query, row.Key, doc)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM records WHERE key = $1`

	res, err := r.db.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// ListKeysWithField returns the keys whose document has the dotted path
// field, ordered by key.
func (r *PostgresRepository) ListKeysWithField(ctx context.Context, field string) ([]string, error) {
	query :=
		`SELECT key FROM records
		 WHERE doc #> string_to_array($1, '.') IS NOT NULL
		 ORDER BY key
		 `

	rows, err := r.db.QueryContext(ctx, query, field)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return keys, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func encodeDoc(doc map[string]any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

func decodeDoc(b []byte) (map[string]any, error) {
	doc := map[string]any{}
	if len(b) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return doc, nil
}
