package repomanager

import (
	"context"
	"database/sql"

	"github.com/p2pvps/marketd/internal/dbx"
	"github.com/p2pvps/marketd/internal/server/repositories/credentials"
	"github.com/p2pvps/marketd/internal/server/repositories/devices"
	"github.com/p2pvps/marketd/internal/server/repositories/listings"
	"github.com/p2pvps/marketd/internal/server/repositories/ports"
	"github.com/p2pvps/marketd/internal/server/repositories/rentals"
	"github.com/p2pvps/marketd/internal/server/repositories/users"
)

// RepositoryManager vends repository implementations bound to a DBTX, so a
// service can run several repositories inside one transaction by binding them
// all to the same *sql.Tx.
type RepositoryManager interface {
	Devices(db dbx.DBTX) devices.Repository
	Credentials(db dbx.DBTX) credentials.Repository
	Listings(db dbx.DBTX) listings.Repository
	Rentals(db dbx.DBTX) rentals.Repository
	Ports(db dbx.DBTX) ports.Repository
	Users(db dbx.DBTX) users.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
