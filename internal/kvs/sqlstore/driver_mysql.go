package sqlstore

// Registers the "mysql" database/sql driver.
import _ "github.com/go-sql-driver/mysql"
