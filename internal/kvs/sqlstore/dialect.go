// Package sqlstore is a kvs.Store implementation over database/sql. It
// stores every key/value pair — document rows and index rows alike — in one
// table keyed by the encoded kvs tuple, generalizing the single-table,
// driver-agnostic persistence layer beads' internal/storage/convex package
// built around SQLite (convex.SQLitePersistence in sqlite.go) to whichever
// database/sql driver is registered.
package sqlstore

import "fmt"

// Dialect isolates the handful of places SQL text differs between drivers.
// Every dialect this package ships speaks '?' positional placeholders
// (sqlite, mysql, and dolt's MySQL-compatible server protocol all do), so a
// Dialect only needs to vary DDL and driver name.
type Dialect interface {
	// DriverName is the value passed to sql.Open.
	DriverName() string
	// CreateTableSQL returns the DDL statement that creates table if absent.
	CreateTableSQL(table string) string
}

type genericDialect struct {
	driver string
}

func (d genericDialect) DriverName() string { return d.driver }

func (d genericDialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	k BLOB PRIMARY KEY,
	v BLOB NOT NULL
)`, table)
}

// SQLite returns the dialect for github.com/ncruces/go-sqlite3's
// database/sql driver, registered under the name "sqlite3".
func SQLite() Dialect { return genericDialect{driver: "sqlite3"} }

// MySQL returns the dialect for github.com/go-sql-driver/mysql, registered
// under the name "mysql". Its DDL differs from the generic one only in the
// column types: a VARBINARY(1024) key and a LONGBLOB value.
func MySQL() Dialect { return mysqlDialect{} }

type mysqlDialect struct{}

func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) CreateTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	k VARBINARY(1024) NOT NULL PRIMARY KEY,
	v LONGBLOB NOT NULL
)`, table)
}

// Dolt returns the dialect for github.com/dolthub/driver, Dolt's
// database/sql driver speaking the same MySQL wire protocol and DDL dialect
// as mysqlDialect.
func Dolt() Dialect { return doltDialect{mysqlDialect{}} }

type doltDialect struct{ mysqlDialect }

func (doltDialect) DriverName() string { return "dolt" }
