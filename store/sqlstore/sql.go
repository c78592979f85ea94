package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"eventers-ticket-ledger/store"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// Store maps ledger keys onto a kv table and ordered lists onto list_items
// rows indexed from zero.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects with the named dialect (mysql, postgres or sqlite3), checks
// the connection and creates the tables if they are missing.
func Open(ctx context.Context, dialectName, dsn string) (*Store, error) {
	d, err := lookupDialect(dialectName)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open: error creating connection pool: %w", err)
	}
	if d.name == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open: could not reach %s: %w", d.name, err)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	raw, err := schemaFiles.ReadFile(s.dialect.schemaFile)
	if err != nil {
		return fmt.Errorf("migrate: read %s: %w", s.dialect.schemaFile, err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: exec %s: %w", s.dialect.schemaFile, err)
		}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT v FROM kv WHERE k = ?`), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %s: %w", key, err)
	}
	return v, nil
}

func (s *Store) Contains(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM kv WHERE k = ?`), key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("contains: %s: %w", key, err)
	}
	return n > 0, nil
}

func (s *Store) Len(ctx context.Context, list string) (uint64, error) {
	n, err := listLen(ctx, s.db, s.dialect, list)
	if err != nil {
		return 0, fmt.Errorf("len: %s: %w", list, err)
	}
	return n, nil
}

func (s *Store) Index(ctx context.Context, list string, i uint64) ([]byte, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT v FROM list_items WHERE name = ? AND idx = ?`), list, int64(i),
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOutOfRange
	}
	if err != nil {
		return nil, fmt.Errorf("index: %s[%d]: %w", list, i, err)
	}
	return v, nil
}

func (s *Store) Range(ctx context.Context, list string, start, stop uint64) ([][]byte, error) {
	if start >= stop {
		return [][]byte{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT v FROM list_items WHERE name = ? AND idx >= ? AND idx < ? ORDER BY idx ASC`),
		list, int64(start), int64(stop),
	)
	if err != nil {
		return nil, fmt.Errorf("range: %s: %w", list, err)
	}
	defer rows.Close()

	out := [][]byte{}
	for rows.Next() {
		var v []byte
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("range: scan %s: %w", list, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("range: iterate %s: %w", list, err)
	}
	return out, nil
}

// Commit applies the batch inside one SQL transaction; any failing op rolls
// the whole batch back.
func (s *Store) Commit(ctx context.Context, b *store.Batch) error {
	if b.Len() == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: error beginning transaction: %w", err)
	}

	if err := s.apply(ctx, tx, b); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("commit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: could not commit transaction: %w", err)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, tx *sql.Tx, b *store.Batch) error {
	d := s.dialect
	lengths := make(map[string]uint64)
	length := func(list string) (uint64, error) {
		if n, ok := lengths[list]; ok {
			return n, nil
		}
		n, err := listLen(ctx, tx, d, list)
		if err != nil {
			return 0, err
		}
		lengths[list] = n
		return n, nil
	}

	for i, op := range b.Ops() {
		switch op.Kind {
		case store.OpSet:
			if _, err := tx.ExecContext(ctx, d.rebind(d.upsert), op.Key, op.Value); err != nil {
				return fmt.Errorf("op %d set %s: %w", i, op.Key, err)
			}
		case store.OpDelete:
			if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM kv WHERE k = ?`), op.Key); err != nil {
				return fmt.Errorf("op %d delete %s: %w", i, op.Key, err)
			}
		case store.OpAppend:
			n, err := length(op.Key)
			if err != nil {
				return fmt.Errorf("op %d append %s: %w", i, op.Key, err)
			}
			if _, err := tx.ExecContext(ctx,
				d.rebind(`INSERT INTO list_items (name, idx, v) VALUES (?, ?, ?)`), op.Key, int64(n), op.Value,
			); err != nil {
				return fmt.Errorf("op %d append %s: %w", i, op.Key, err)
			}
			lengths[op.Key] = n + 1
		case store.OpSetIndex:
			n, err := length(op.Key)
			if err != nil {
				return fmt.Errorf("op %d set_index %s: %w", i, op.Key, err)
			}
			if op.Index >= n {
				return fmt.Errorf("op %d set_index %s[%d]: %w", i, op.Key, op.Index, store.ErrOutOfRange)
			}
			if _, err := tx.ExecContext(ctx,
				d.rebind(`UPDATE list_items SET v = ? WHERE name = ? AND idx = ?`), op.Value, op.Key, int64(op.Index),
			); err != nil {
				return fmt.Errorf("op %d set_index %s[%d]: %w", i, op.Key, op.Index, err)
			}
		default:
			return fmt.Errorf("op %d: unknown kind %d", i, op.Kind)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func listLen(ctx context.Context, q queryRower, d dialect, list string) (uint64, error) {
	var n int64
	if err := q.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM list_items WHERE name = ?`), list).Scan(&n); err != nil {
		return 0, err
	}
	return uint64(n), nil
}
