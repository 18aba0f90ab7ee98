// Package repomanager vends repositories bound to a database handle, so the
// same service code runs against *sql.DB, *sql.Tx or in-memory stores.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/otps"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	OTPs(db dbx.DBTX) otps.Repository
}
