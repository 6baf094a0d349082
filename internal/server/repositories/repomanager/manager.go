package repomanager

import (
	"context"
	"database/sql"

	"github.com/MobilityFirst/GNS-sub011/internal/dbx"
	"github.com/MobilityFirst/GNS-sub011/internal/server/repositories/records"
)

// RepositoryManager hands out repositories bound to a pool or a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
}
