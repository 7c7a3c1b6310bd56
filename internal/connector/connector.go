// Package connector opens and closes the database connection used by one
// migration run. Pooling and directory lookups are left to database/sql and
// the drivers; a Connector only knows how to produce a handle and release it.
package connector

import (
	"context"
	"database/sql"
	"slices"

	// Registered drivers: "postgres", "pgx", "mysql", "sqlite".
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hlop3z/addenda/internal/alerr"
)

// Connector produces the connection for one run and releases it afterwards.
type Connector interface {
	Open(ctx context.Context) (*sql.DB, error)
	Close(db *sql.DB) error
}

// DriverConnector opens a database/sql handle for a registered driver.
type DriverConnector struct {
	DriverName string
	DSN        string
}

// Driver returns a connector for a registered driver and data source name.
func Driver(driverName, dsn string) *DriverConnector {
	return &DriverConnector{DriverName: driverName, DSN: dsn}
}

// Open opens the handle and pings it, so a bad address fails here rather
// than on the first statement.
func (c *DriverConnector) Open(ctx context.Context) (*sql.DB, error) {
	if !slices.Contains(sql.Drivers(), c.DriverName) {
		return nil, alerr.New(alerr.ErrLookup, "driver is not registered").
			With("driver", c.DriverName).
			With("available", sql.Drivers())
	}
	db, err := sql.Open(c.DriverName, c.DSN)
	if err != nil {
		return nil, alerr.Wrap(alerr.ErrConnect, err, "cannot open database").
			With("driver", c.DriverName).
			With("url", Redact(c.DSN))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, alerr.Wrap(alerr.ErrConnect, err, "cannot connect to database").
			With("driver", c.DriverName).
			With("url", Redact(c.DSN))
	}
	return db, nil
}

// Close closes the handle.
func (c *DriverConnector) Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return alerr.Wrap(alerr.ErrClose, err, "cannot close database").
			With("driver", c.DriverName)
	}
	return nil
}

// String returns the driver and the redacted data source name.
func (c *DriverConnector) String() string {
	return c.DriverName + " " + Redact(c.DSN)
}

// StaticConnector hands out a handle owned by the caller. Close leaves the
// handle open.
type StaticConnector struct {
	DB *sql.DB
}

// Static wraps an existing handle, e.g. a test database.
func Static(db *sql.DB) *StaticConnector {
	return &StaticConnector{DB: db}
}

func (c *StaticConnector) Open(ctx context.Context) (*sql.DB, error) {
	if c.DB == nil {
		return nil, alerr.New(alerr.ErrConnect, "no database handle")
	}
	return c.DB, nil
}

func (c *StaticConnector) Close(*sql.DB) error {
	return nil
}
