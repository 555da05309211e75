// Package repomanager vends repository implementations bound to a database
// handle and exposes the schema migration hook.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/userval/internal/dbx"
	"github.com/dmitrijs2005/userval/internal/server/repositories/otps"
	"github.com/dmitrijs2005/userval/internal/server/repositories/users"
)

type RepositoryManager interface {
	Users(db dbx.DBTX) users.Repository
	OTPs(db dbx.DBTX) otps.Repository
	RunMigrations(ctx context.Context, db *sql.DB) error
}
