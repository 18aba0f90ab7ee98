package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/watchlist-auth/internal/dbx"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/memory"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/otps"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/repositories/users"
)

// MemoryRepositoryManager ignores the DBTX it is handed and always returns
// repositories over one shared memory.Store. Pair it with dbx.NoTx.
type MemoryRepositoryManager struct {
	store *memory.Store
}

// NewMemoryRepositoryManager returns a manager over store.
func NewMemoryRepositoryManager(store *memory.Store) RepositoryManager {
	return &MemoryRepositoryManager{store: store}
}

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository {
	return m.store.Users()
}

func (m *MemoryRepositoryManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return m.store.RefreshTokens()
}

func (m *MemoryRepositoryManager) OTPs(dbx.DBTX) otps.Repository {
	return m.store.OTPs()
}

// RunMigrations is a no-op; the store has no schema.
func (m *MemoryRepositoryManager) RunMigrations(context.Context, *sql.DB) error {
	return nil
}
