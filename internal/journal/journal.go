// Package journal is an append-only sqlite store for envelope values.
// Rows outlive the union that wrote them: every read re-classifies the
// stored tag, and Verify reports rows whose tag is no longer declared.
package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/funvibe/funion/pkg/envelope"
	"github.com/funvibe/funion/pkg/schema"
)

const createTable = `CREATE TABLE IF NOT EXISTS entries (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	tag TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
)`

// Entry is one stored record.
type Entry struct {
	Seq       int64
	ID        string
	Value     *envelope.Value
	CreatedAt time.Time
}

// BadEntry describes a row whose tag the current union no longer
// declares.
type BadEntry struct {
	Seq int64
	ID  string
	Tag string
	Err error
}

// Journal is an append-only store bound to one union.
type Journal struct {
	db    *sql.DB
	codec *envelope.Codec
}

// Open opens the journal at path, creating it on first use, bound to
// the given union.
func Open(path string, u *schema.Union) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %v", err)
	}
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init journal: %v", err)
	}
	return &Journal{db: db, codec: envelope.NewCodec(u)}, nil
}

// Union returns the schema union the journal is bound to.
func (j *Journal) Union() *schema.Union {
	return j.codec.Union()
}

// Append stores a value and returns its generated entry id.
func (j *Journal) Append(v *envelope.Value) (string, error) {
	payload, err := j.codec.EncodeJSON(v)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = j.db.Exec(
		"INSERT INTO entries (id, tag, payload, created_at) VALUES (?, ?, ?, ?)",
		id, v.Tag(), string(payload), now,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append entry: %v", err)
	}
	return id, nil
}

// Get loads one entry by id. Decoding re-classifies the stored tag, so
// an entry written under a tag the union no longer declares fails with
// the usual unknown-tag error.
func (j *Journal) Get(id string) (*Entry, error) {
	row := j.db.QueryRow("SELECT seq, id, payload, created_at FROM entries WHERE id = ?", id)
	e, err := j.scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no entry with id %s", id)
	}
	return e, err
}

// Scan visits every entry in insertion order. An error from the
// callback stops the walk and is returned.
func (j *Journal) Scan(fn func(*Entry) error) error {
	rows, err := j.db.Query("SELECT seq, id, payload, created_at FROM entries ORDER BY seq")
	if err != nil {
		return fmt.Errorf("failed to scan journal: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		e, err := j.scanEntry(rows)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

// FilterTag returns the entries carrying tag, oldest first. The tag
// must be declared by the union.
func (j *Journal) FilterTag(tag string) ([]*Entry, error) {
	if _, err := j.codec.Union().VariantOf(tag); err != nil {
		return nil, err
	}

	rows, err := j.db.Query("SELECT seq, id, payload, created_at FROM entries WHERE tag = ? ORDER BY seq", tag)
	if err != nil {
		return nil, fmt.Errorf("failed to filter journal: %v", err)
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		e, err := j.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Len reports the number of stored entries.
func (j *Journal) Len() (int, error) {
	var n int
	if err := j.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count entries: %v", err)
	}
	return n, nil
}

// Verify re-classifies every stored tag against the current union and
// reports the rows whose tag is no longer declared. An empty result
// means every row still maps to a declared variant.
func (j *Journal) Verify() ([]BadEntry, error) {
	rows, err := j.db.Query("SELECT seq, id, tag FROM entries ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to verify journal: %v", err)
	}
	defer rows.Close()

	var bad []BadEntry
	for rows.Next() {
		var (
			seq int64
			id  string
			tag string
		)
		if err := rows.Scan(&seq, &id, &tag); err != nil {
			return nil, err
		}
		if _, err := j.codec.Union().VariantOf(tag); err != nil {
			bad = append(bad, BadEntry{Seq: seq, ID: id, Tag: tag, Err: err})
		}
	}
	return bad, rows.Err()
}

// Close releases the underlying database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (j *Journal) scanEntry(row rowScanner) (*Entry, error) {
	var (
		seq     int64
		id      string
		payload string
		created string
	)
	if err := row.Scan(&seq, &id, &payload, &created); err != nil {
		return nil, err
	}

	v, err := j.codec.DecodeJSON([]byte(payload))
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", id, err)
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("entry %s: bad timestamp: %v", id, err)
	}
	return &Entry{Seq: seq, ID: id, Value: v, CreatedAt: ts}, nil
}
