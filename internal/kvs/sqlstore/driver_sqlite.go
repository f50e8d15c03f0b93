package sqlstore

// Registers the "sqlite3" database/sql driver (pure Go, WASM-based, no cgo).
import _ "github.com/ncruces/go-sqlite3/driver"
import _ "github.com/ncruces/go-sqlite3/embed"
