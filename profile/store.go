package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrUnknownSession is returned when a session ID has no recorded snapshot.
var ErrUnknownSession = errors.New("profile: unknown session")

// Store persists snapshots in a SQLite database: one row per session and
// one row per call site.
type Store struct {
	db   *sql.DB
	path string
}

// Session summarizes one recorded snapshot.
type Session struct {
	ID              uuid.UUID
	Created         time.Time
	InlineCacheSize int
	Sites           int
	Megamorphic     int
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id                   TEXT PRIMARY KEY,
	created              INTEGER NOT NULL,
	inline_cache_size    INTEGER NOT NULL,
	eager_specialization INTEGER NOT NULL,
	type_checking        INTEGER NOT NULL,
	snapshot             BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS sites (
	session_id      TEXT NOT NULL REFERENCES sessions(id),
	site_id         INTEGER NOT NULL,
	kind            TEXT NOT NULL,
	selector        TEXT NOT NULL,
	source          TEXT NOT NULL,
	chain_length    INTEGER NOT NULL,
	state           TEXT NOT NULL,
	hits            INTEGER NOT NULL,
	misses          INTEGER NOT NULL,
	specializations INTEGER NOT NULL,
	deopts          INTEGER NOT NULL,
	PRIMARY KEY (session_id, site_id)
);`

// OpenStore opens or creates the profile database at path.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating profile directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening profile database: %w", err)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a snapshot and its sites in one transaction.
func (s *Store) Record(ctx context.Context, snap *Snapshot) error {
	blob, err := MarshalSnapshot(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created, inline_cache_size, eager_specialization, type_checking, snapshot)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		snap.SessionID.String(), snap.Created.Unix(), snap.Options.InlineCacheSize,
		snap.Options.EagerSpecialization, snap.Options.TypeChecking, blob)
	if err != nil {
		return fmt.Errorf("recording session %s: %w", snap.SessionID, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sites (session_id, site_id, kind, selector, source, chain_length, state, hits, misses, specializations, deopts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing site insert: %w", err)
	}
	defer stmt.Close()

	for _, site := range snap.Sites {
		_, err := stmt.ExecContext(ctx,
			snap.SessionID.String(), site.ID, site.Kind, site.Selector, site.Source,
			site.ChainLength, site.State, int64(site.Hits), int64(site.Misses),
			int64(site.Specializations), int64(site.Deopts))
		if err != nil {
			return fmt.Errorf("recording site %d: %w", site.ID, err)
		}
	}

	return tx.Commit()
}

// Sessions lists recorded sessions, oldest first.
func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.created, s.inline_cache_size,
		       COUNT(t.site_id),
		       COALESCE(SUM(CASE WHEN t.state = 'megamorphic' THEN 1 ELSE 0 END), 0)
		FROM sessions s LEFT JOIN sites t ON t.session_id = s.id
		GROUP BY s.id
		ORDER BY s.created, s.id`)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			id      string
			created int64
			sess    Session
		)
		if err := rows.Scan(&id, &created, &sess.InlineCacheSize, &sess.Sites, &sess.Megamorphic); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if sess.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("session id %q: %w", id, err)
		}
		sess.Created = time.Unix(created, 0).UTC()
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Sites returns the site records of a session in site ID order.
func (s *Store) Sites(ctx context.Context, session uuid.UUID) ([]SiteRecord, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM sessions WHERE id = ?", session.String()).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session %s: %w", session, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT site_id, kind, selector, source, chain_length, state, hits, misses, specializations, deopts
		FROM sites WHERE session_id = ? ORDER BY site_id`, session.String())
	if err != nil {
		return nil, fmt.Errorf("querying sites: %w", err)
	}
	defer rows.Close()

	var out []SiteRecord
	for rows.Next() {
		var r SiteRecord
		var hits, misses, specializations, deopts int64
		if err := rows.Scan(&r.ID, &r.Kind, &r.Selector, &r.Source, &r.ChainLength, &r.State,
			&hits, &misses, &specializations, &deopts); err != nil {
			return nil, fmt.Errorf("scanning site: %w", err)
		}
		r.Hits, r.Misses = uint64(hits), uint64(misses)
		r.Specializations, r.Deopts = uint64(specializations), uint64(deopts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Snapshot loads the full snapshot recorded for a session.
func (s *Store) Snapshot(ctx context.Context, session uuid.UUID) (*Snapshot, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, "SELECT snapshot FROM sessions WHERE id = ?", session.String()).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, session)
	}
	if err != nil {
		return nil, fmt.Errorf("loading snapshot %s: %w", session, err)
	}
	return UnmarshalSnapshot(blob)
}
