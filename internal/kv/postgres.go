package kv

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/jackc/pgtype"
	migrate "github.com/rubenv/sql-migrate"
)

// migrations holds the schema for the durable tic_kv table, applied with
// sql-migrate the same way nakama's migrate package embeds and runs its SQL
// files (migrate/migrate.go).
//
//go:embed migrations/*.sql
var migrations embed.FS

// Postgres is a Store backed by a single `tic_kv` table. It is the
// production backend selected by RuntimeConfig.KVBackend == "postgres";
// Memory remains the default for local/dev use and tests.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to addr, applies pending migrations, and returns a
// ready-to-use Store.
func OpenPostgres(addr string) (*Postgres, error) {
	db, err := sql.Open("pgx", addr)
	if err != nil {
		return nil, fmt.Errorf("kv: open postgres: %w", err)
	}
	src := &migrate.EmbedFileSystemMigrationSource{FileSystem: migrations, Root: "migrations"}
	if _, err := migrate.Exec(db, "postgres", src, migrate.Up); err != nil {
		db.Close()
		return nil, fmt.Errorf("kv: apply migrations: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Get(key string) ([]byte, bool) {
	var val []byte
	err := p.db.QueryRow(`SELECT value FROM tic_kv WHERE key = $1`, key).Scan(&val)
	if err != nil {
		return nil, false
	}
	return val, true
}

func (p *Postgres) Set(key string, value []byte) {
	_, err := p.db.Exec(`
		INSERT INTO tic_kv (key, value, update_time) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, update_time = now()`, key, value)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			// Lost a concurrent insert race; the row now exists, retry as update.
			_, _ = p.db.Exec(`UPDATE tic_kv SET value = $2, update_time = now() WHERE key = $1`, key, value)
			return
		}
	}
}

// UpdatedAt reports when key was last written. Uses pgtype.Timestamptz directly (rather than scanning
// into time.Time) the way nakama's console handlers do for every
// create_time/update_time column (see console_storage.go).
func (p *Postgres) UpdatedAt(key string) (time.Time, bool) {
	var ts pgtype.Timestamptz
	err := p.db.QueryRow(`SELECT update_time FROM tic_kv WHERE key = $1`, key).Scan(&ts)
	if err != nil || ts.Status != pgtype.Present {
		return time.Time{}, false
	}
	return ts.Time, true
}

func (p *Postgres) GetMany(keys ...string) map[string][]byte {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out
	}
	rows, err := p.db.Query(`SELECT key, value FROM tic_kv WHERE key = ANY($1)`, keys)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err == nil {
			out[k] = v
		}
	}
	return out
}

func (p *Postgres) SetMany(kv map[string][]byte) {
	for k, v := range kv {
		p.Set(k, v)
	}
}

func (p *Postgres) Items() map[string][]byte {
	out := make(map[string][]byte)
	rows, err := p.db.Query(`SELECT key, value FROM tic_kv`)
	if err != nil {
		return out
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		var v []byte
		if err := rows.Scan(&k, &v); err == nil {
			out[k] = v
		}
	}
	return out
}

func (p *Postgres) Has(key string) bool {
	_, ok := p.Get(key)
	return ok
}
