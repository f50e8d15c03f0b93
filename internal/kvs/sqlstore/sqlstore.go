package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/object-layer/document-store/internal/kvs"
)

// execer is satisfied by both *sql.DB and *sql.Tx, so Store can hold either
// without a type switch on every call.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultTable = "docstore_kv"

// Store is a kvs.Store backed by a SQL table. Open with Open (given a
// *sql.DB you manage yourself) or one of the driver-specific constructors.
type Store struct {
	db      *sql.DB
	conn    execer
	dialect Dialect
	table   string
	inTx    bool
}

var _ kvs.Store = (*Store)(nil)

// Open wraps an already-configured *sql.DB. It issues CREATE TABLE IF NOT
// EXISTS for the dialect's table so callers don't need a separate migration
// step to start using a fresh database file.
func Open(ctx context.Context, db *sql.DB, dialect Dialect) (*Store, error) {
	s := &Store{db: db, conn: db, dialect: dialect, table: defaultTable}
	if _, err := db.ExecContext(ctx, dialect.CreateTableSQL(s.table)); err != nil {
		return nil, fmt.Errorf("sqlstore: creating table: %w", err)
	}
	return s, nil
}

// OpenSQLite opens dsn (a file path, or ":memory:") with the sqlite dialect.
func OpenSQLite(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(SQLite().DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening sqlite %q: %w", dsn, err)
	}
	return Open(ctx, db, SQLite())
}

// OpenMySQL opens dsn (a go-sql-driver/mysql DSN) with the mysql dialect.
func OpenMySQL(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(MySQL().DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening mysql: %w", err)
	}
	return Open(ctx, db, MySQL())
}

// OpenDolt opens dsn (a dolthub/driver DSN, e.g. "file:///path/to/db?commitname=...") with the dolt dialect.
func OpenDolt(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open(Dolt().DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening dolt: %w", err)
	}
	return Open(ctx, db, Dolt())
}

func (s *Store) Close() error {
	if s.inTx {
		return nil
	}
	return s.db.Close()
}

func (s *Store) exists(ctx context.Context, key []byte) (bool, error) {
	var dummy int
	err := s.conn.QueryRowContext(ctx, "SELECT 1 FROM "+s.table+" WHERE k = ?", key).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("sqlstore: checking existence: %w", err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key kvs.Key, opts kvs.GetOptions) ([]byte, bool, error) {
	var v []byte
	err := s.conn.QueryRowContext(ctx, "SELECT v FROM "+s.table+" WHERE k = ?", kvs.EncodeKey(key)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		if opts.ErrorIfMissing {
			return nil, false, kvs.ErrNotFound
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlstore: get: %w", err)
	}
	return v, true, nil
}

func (s *Store) Put(ctx context.Context, key kvs.Key, value []byte, opts kvs.PutOptions) error {
	enc := kvs.EncodeKey(key)
	exists, err := s.exists(ctx, enc)
	if err != nil {
		return err
	}
	if exists {
		if opts.ErrorIfExists {
			return kvs.ErrExists
		}
		if _, err := s.conn.ExecContext(ctx, "UPDATE "+s.table+" SET v = ? WHERE k = ?", value, enc); err != nil {
			return fmt.Errorf("sqlstore: update: %w", err)
		}
		return nil
	}
	if !opts.CreateIfMissing {
		return kvs.ErrNotFound
	}
	if _, err := s.conn.ExecContext(ctx, "INSERT INTO "+s.table+" (k, v) VALUES (?, ?)", enc, value); err != nil {
		return fmt.Errorf("sqlstore: insert: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key kvs.Key, opts kvs.DeleteOptions) (bool, error) {
	enc := kvs.EncodeKey(key)
	exists, err := s.exists(ctx, enc)
	if err != nil {
		return false, err
	}
	if !exists {
		if opts.ErrorIfMissing {
			return false, kvs.ErrNotFound
		}
		return false, nil
	}
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE k = ?", enc); err != nil {
		return false, fmt.Errorf("sqlstore: delete: %w", err)
	}
	return true, nil
}

// GetMany fetches each key in turn, the way beads' SQLitePersistence.GetDocuments
// loops GetDocument per id rather than building a dynamic IN clause.
func (s *Store) GetMany(ctx context.Context, keys []kvs.Key, opts kvs.GetOptions) ([]kvs.KeyValue, error) {
	out := make([]kvs.KeyValue, 0, len(keys))
	for _, k := range keys {
		v, found, err := s.Get(ctx, k, opts)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, kvs.KeyValue{Key: k, Value: v})
		}
	}
	return out, nil
}

func (s *Store) whereClause(r kvs.ByteRange) (string, []any) {
	lowerOp, upperOp := ">=", "<"
	if !r.LowerIncl {
		lowerOp = ">"
	}
	if r.UpperIncl {
		upperOp = "<="
	}
	clause := "k " + lowerOp + " ?"
	args := []any{r.Lower}
	if r.Upper != nil {
		clause += " AND k " + upperOp + " ?"
		args = append(args, r.Upper)
	}
	return clause, args
}

func (s *Store) Find(ctx context.Context, opts kvs.FindOptions) ([]kvs.KeyValue, error) {
	r := kvs.ComputeByteRange(opts.Prefix, opts.Start, opts.StartAfter, opts.End, opts.EndBefore)
	where, args := s.whereClause(r)

	cols := "k"
	if opts.ReturnValues {
		cols = "k, v"
	}
	order := "ASC"
	if opts.Reverse {
		order = "DESC"
	}
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY k %s", cols, s.table, where, order)
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: find: %w", err)
	}
	defer rows.Close()

	var out []kvs.KeyValue
	for rows.Next() {
		var kb, vb []byte
		if opts.ReturnValues {
			if err := rows.Scan(&kb, &vb); err != nil {
				return nil, fmt.Errorf("sqlstore: scan: %w", err)
			}
		} else {
			if err := rows.Scan(&kb); err != nil {
				return nil, fmt.Errorf("sqlstore: scan: %w", err)
			}
		}
		key, err := kvs.DecodeKey(kb)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: decoding stored key: %w", err)
		}
		out = append(out, kvs.KeyValue{Key: key, Value: vb})
	}
	return out, rows.Err()
}

func (s *Store) Count(ctx context.Context, opts kvs.RangeOptions) (int64, error) {
	r := kvs.ComputeByteRange(opts.Prefix, opts.Start, opts.StartAfter, opts.End, opts.EndBefore)
	where, args := s.whereClause(r)
	var n int64
	err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+s.table+" WHERE "+where, args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: count: %w", err)
	}
	return n, nil
}

func (s *Store) FindAndDelete(ctx context.Context, opts kvs.RangeOptions) (int64, error) {
	r := kvs.ComputeByteRange(opts.Prefix, opts.Start, opts.StartAfter, opts.End, opts.EndBefore)
	where, args := s.whereClause(r)
	res, err := s.conn.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: findAndDelete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: rows affected: %w", err)
	}
	return n, nil
}

// Transaction opens a *sql.Tx and hands the caller a Store scoped to it. A
// nested Transaction call (s already wraps a *sql.Tx) reuses it instead of
// starting a new one, same as memkvs and the spec's stated rule.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx kvs.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	txStore := &Store{db: s.db, conn: tx, dialect: s.dialect, table: s.table, inTx: true}
	if err := fn(ctx, txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}
