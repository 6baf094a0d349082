package records

import (
	"context"

	"github.com/MobilityFirst/GNS-sub011/internal/server/models"
)

// Repository persists key-records. Missing keys yield common.ErrorNotFound,
// an existing key on Insert yields common.ErrorAlreadyExists.
type Repository interface {
	Insert(ctx context.Context, row *models.RecordRow) error
	Get(ctx context.Context, key string) (*models.RecordRow, error)
	// GetForUpdate is Get holding a row lock until the transaction ends.
	GetForUpdate(ctx context.Context, key string) (*models.RecordRow, error)
	Save(ctx context.Context, row *models.RecordRow) error
	Delete(ctx context.Context, key string) error
	ListKeysWithField(ctx context.Context, field string) ([]string, error)
}
