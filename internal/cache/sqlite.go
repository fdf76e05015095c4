package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteBackend persists entries in a local sqlite file.
//
// The go sqlite driver does not allow for concurrent writes, so all statements
// go through dbLock.
type SQLiteBackend struct {
	Database string
	db       *sql.DB

	dbLock sync.Mutex
}

func OpenSQLite(database string) (*SQLiteBackend, error) {
	if database == "" {
		return nil, errors.New("sqlite database file not set")
	}

	db, err := sql.Open("sqlite3", database)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	createEntries := "CREATE TABLE IF NOT EXISTS cache_entries (key text not null primary key, url text not null, timestamp integer not null, data text not null);"
	if _, err = db.Exec(createEntries); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table %q: %w", createEntries, err)
	}

	return &SQLiteBackend{Database: database, db: db}, nil
}

func (o *SQLiteBackend) Load(ctx context.Context, key string) (Entry, error) {
	o.dbLock.Lock()
	defer o.dbLock.Unlock()

	var e Entry
	var data string
	row := o.db.QueryRowContext(ctx, "SELECT url, timestamp, data FROM cache_entries WHERE key = ?;", key)
	if err := row.Scan(&e.URL, &e.Timestamp, &data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrMiss
		}
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return Entry{}, fmt.Errorf("decode entry %s: %w", e.URL, err)
	}
	return e, nil
}

func (o *SQLiteBackend) Save(ctx context.Context, key string, e Entry, _ time.Duration) error {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}

	upsert := `INSERT INTO cache_entries(key, url, timestamp, data) VALUES(?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET url = excluded.url, timestamp = excluded.timestamp, data = excluded.data;`

	o.dbLock.Lock()
	defer o.dbLock.Unlock()
	_, err = o.db.ExecContext(ctx, upsert, key, e.URL, e.Timestamp, string(data))
	return err
}

func (o *SQLiteBackend) Delete(ctx context.Context, keys ...string) error {
	o.dbLock.Lock()
	defer o.dbLock.Unlock()

	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE key = ?;", k); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (o *SQLiteBackend) DeleteAll(ctx context.Context) error {
	o.dbLock.Lock()
	defer o.dbLock.Unlock()
	_, err := o.db.ExecContext(ctx, "DELETE FROM cache_entries;")
	return err
}

// Range visits entries in key order. Rows that do not decode are skipped.
func (o *SQLiteBackend) Range(ctx context.Context, fn func(key string, e Entry) bool) error {
	type row struct {
		key  string
		e    Entry
		data string
	}

	o.dbLock.Lock()
	rows, err := o.db.QueryContext(ctx, "SELECT key, url, timestamp, data FROM cache_entries ORDER BY key;")
	if err != nil {
		o.dbLock.Unlock()
		return err
	}
	var all []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.key, &r.e.URL, &r.e.Timestamp, &r.data); err != nil {
			rows.Close()
			o.dbLock.Unlock()
			return err
		}
		all = append(all, r)
	}
	err = rows.Err()
	rows.Close()
	o.dbLock.Unlock()
	if err != nil {
		return err
	}

	for _, r := range all {
		if json.Unmarshal([]byte(r.data), &r.e.Data) != nil {
			continue
		}
		if !fn(r.key, r.e) {
			break
		}
	}
	return nil
}

func (o *SQLiteBackend) Close() error {
	return o.db.Close()
}
