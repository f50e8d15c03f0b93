package sqlstore

// Registers the "dolt" database/sql driver. Dolt speaks the MySQL wire
// protocol, so it shares mysqlDialect's DDL/placeholder conventions (see
// dialect.go) while running against a version-controlled SQL engine instead
// of a MySQL server.
import _ "github.com/dolthub/driver"
