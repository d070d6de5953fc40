// Package registry persists Project and Repository registry rows (name,
// state, creator, timestamps) in Postgres via jackc/pgx's database/sql
// driver and Masterminds/squirrel query building, trimmed to a single
// connection since this registry has no read-replica traffic pattern to
// justify one.
package registry

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/LerianStudio/confdogma/internal/domain/apperr"
	"github.com/LerianStudio/confdogma/internal/pkg/mlog"
)

// Connection is a hub for the registry database.
type Connection struct {
	DSN    string
	Logger mlog.Logger

	db *sql.DB
}

// Connect opens the connection pool and verifies reachability with a ping.
func (c *Connection) Connect(ctx context.Context) error {
	c.Logger.Info("connecting to registry database")

	db, err := sql.Open("pgx", c.DSN)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "open registry database")
	}

	if err := db.PingContext(ctx); err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "ping registry database")
	}

	c.db = db
	c.Logger.Info("connected to registry database")

	return nil
}

// DB returns the shared *sql.DB, connecting on first use.
func (c *Connection) DB(ctx context.Context) (*sql.DB, error) {
	if c.db == nil {
		if err := c.Connect(ctx); err != nil {
			return nil, err
		}
	}

	return c.db, nil
}
