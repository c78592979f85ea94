package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

type dialect struct {
	name       string
	driverName string
	schemaFile string
	upsert     string
	numbered   bool
}

var dialects = map[string]dialect{
	"mysql": {
		name:       "mysql",
		driverName: "mysql",
		schemaFile: "schema/mysql.sql",
		upsert:     `INSERT INTO kv (k, v) VALUES (?, ?) ON DUPLICATE KEY UPDATE v = VALUES(v)`,
	},
	"postgres": {
		name:       "postgres",
		driverName: "pgx",
		schemaFile: "schema/postgres.sql",
		upsert:     `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
		numbered:   true,
	},
	"sqlite3": {
		name:       "sqlite3",
		driverName: "sqlite3",
		schemaFile: "schema/sqlite3.sql",
		upsert:     `INSERT INTO kv (k, v) VALUES (?, ?) ON CONFLICT (k) DO UPDATE SET v = excluded.v`,
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return dialect{}, fmt.Errorf("unsupported sql dialect %q", name)
	}
	return d, nil
}

// rebind rewrites ? placeholders to $n for drivers that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
