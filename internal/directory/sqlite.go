package directory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/meibo/internal/models"
)

// coverageMinMatches is the number of cached hits for a query above which the
// cache is considered good coverage.
const coverageMinMatches = 3

// SQLiteStore implements Store using SQLite, with an optional Bleve entry
// index for scored search. Without an index, SearchLocally falls back to an
// unscored LIKE query.
type SQLiteStore struct {
	db    *sql.DB
	index *EntryIndex
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes
// the schema. Parent directories are created if they do not exist. index may
// be nil.
func NewSQLiteStore(dbPath string, index *EntryIndex) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, index: index}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		nickname TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		bio TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		provenance TEXT NOT NULL DEFAULT '',
		is_pinned INTEGER NOT NULL DEFAULT 0,
		is_recent INTEGER NOT NULL DEFAULT 0,
		interaction_count INTEGER NOT NULL DEFAULT 0,
		shared_channels TEXT NOT NULL DEFAULT '[]',
		direct_channel_id TEXT NOT NULL DEFAULT '',
		channel_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_entries_important ON entries(is_pinned, is_recent);
	CREATE INDEX IF NOT EXISTS idx_entries_channel_url ON entries(channel_url);

	CREATE TABLE IF NOT EXISTS search_matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		entry_id TEXT NOT NULL,
		query TEXT NOT NULL,
		source TEXT NOT NULL,
		confidence REAL NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (entry_id) REFERENCES entries(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_matches_query ON search_matches(query);
	`
	_, err := db.Exec(schema)
	return err
}

const entryColumns = `id, kind, name, nickname, email, bio, department, avatar_url,
	provenance, is_pinned, is_recent, interaction_count, shared_channels,
	direct_channel_id, channel_url, created_at, updated_at`

// upsertEntrySQL backfills empty optional fields and upgrades flags, but never
// replaces a non-empty local value with remote data.
const upsertEntrySQL = `
	INSERT INTO entries (` + entryColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = CASE WHEN entries.name = '' THEN excluded.name ELSE entries.name END,
		nickname = CASE WHEN entries.nickname = '' THEN excluded.nickname ELSE entries.nickname END,
		email = CASE WHEN entries.email = '' THEN excluded.email ELSE entries.email END,
		bio = CASE WHEN entries.bio = '' THEN excluded.bio ELSE entries.bio END,
		department = CASE WHEN entries.department = '' THEN excluded.department ELSE entries.department END,
		avatar_url = CASE WHEN entries.avatar_url = '' THEN excluded.avatar_url ELSE entries.avatar_url END,
		provenance = CASE WHEN excluded.provenance != '' THEN excluded.provenance ELSE entries.provenance END,
		is_pinned = MAX(entries.is_pinned, excluded.is_pinned),
		is_recent = MAX(entries.is_recent, excluded.is_recent),
		interaction_count = MAX(entries.interaction_count, excluded.interaction_count),
		shared_channels = CASE WHEN entries.shared_channels IN ('', '[]')
			THEN excluded.shared_channels ELSE entries.shared_channels END,
		direct_channel_id = CASE WHEN entries.direct_channel_id = ''
			THEN excluded.direct_channel_id ELSE entries.direct_channel_id END,
		channel_url = CASE WHEN entries.channel_url = '' THEN excluded.channel_url ELSE entries.channel_url END,
		updated_at = excluded.updated_at`

// AddItemsFromSearch upserts entries returned by a remote search and reindexes
// the merged rows.
func (s *SQLiteStore) AddItemsFromSearch(ctx context.Context, query string, items []*models.DirectoryEntry) error {
	if len(items) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, upsertEntrySQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range items {
		channels, err := json.Marshal(e.SharedChannels)
		if err != nil {
			return fmt.Errorf("failed to marshal shared channels: %w", err)
		}
		provenance := e.Provenance
		if provenance == "" {
			provenance = models.ProvenanceRemote
		}
		if _, err := stmt.ExecContext(ctx,
			e.ID, e.Kind, e.Name, e.Nickname, e.Email, e.Bio, e.Department,
			e.AvatarURL, provenance, e.IsPinned, e.IsRecent, e.InteractionCount,
			string(channels), e.DirectChannelID, e.ChannelURL, now, now,
		); err != nil {
			return fmt.Errorf("failed to upsert entry %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if s.index == nil {
		return nil
	}
	// Index the merged rows, not the raw remote items, so the index reflects
	// the backfilled state.
	for _, e := range items {
		merged, err := s.Chat(ctx, e.ID)
		if err != nil || merged == nil {
			continue
		}
		if err := s.index.Index(ctx, merged); err != nil {
			return fmt.Errorf("failed to index entry %s: %w", e.ID, err)
		}
	}
	return nil
}

// SearchLocally searches the entry index and hydrates rows from SQLite. With
// no index configured, falls back to an unscored LIKE query ordered by pinned,
// recent, then interaction count.
func (s *SQLiteStore) SearchLocally(ctx context.Context, query string, limit int) ([]*Hit, error) {
	if s.index != nil {
		indexHits, err := s.index.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		hits := make([]*Hit, 0, len(indexHits))
		for _, ih := range indexHits {
			entry, err := s.Chat(ctx, ih.ID)
			if err != nil {
				return nil, err
			}
			if entry == nil {
				continue
			}
			hits = append(hits, &Hit{Entry: entry, Score: ih.Score})
		}
		return hits, nil
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE name LIKE ? COLLATE NOCASE
		    OR nickname LIKE ? COLLATE NOCASE
		    OR email LIKE ? COLLATE NOCASE
		    OR bio LIKE ? COLLATE NOCASE
		    OR department LIKE ? COLLATE NOCASE
		 ORDER BY is_pinned DESC, is_recent DESC, interaction_count DESC, name
		 LIMIT ?`,
		pattern, pattern, pattern, pattern, pattern, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		hits = append(hits, &Hit{Entry: entry})
	}
	return hits, rows.Err()
}

// HasGoodCoverage reports whether the cache holds enough matching entries for
// the query.
func (s *SQLiteStore) HasGoodCoverage(ctx context.Context, query string) (bool, error) {
	if s.index != nil {
		hits, err := s.index.Search(ctx, query, coverageMinMatches)
		if err != nil {
			return false, err
		}
		return len(hits) >= coverageMinMatches, nil
	}
	pattern := "%" + query + "%"
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entries
		 WHERE name LIKE ? COLLATE NOCASE
		    OR nickname LIKE ? COLLATE NOCASE
		    OR email LIKE ? COLLATE NOCASE
		    OR bio LIKE ? COLLATE NOCASE
		    OR department LIKE ? COLLATE NOCASE`,
		pattern, pattern, pattern, pattern, pattern,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count >= coverageMinMatches, nil
}

// ImportantChats returns pinned and recently-interacted entries, pinned first.
func (s *SQLiteStore) ImportantChats(ctx context.Context) ([]*models.DirectoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM entries
		 WHERE is_pinned = 1 OR is_recent = 1
		 ORDER BY is_pinned DESC, interaction_count DESC, name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.DirectoryEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Chat returns an entry by id, or nil when absent.
func (s *SQLiteStore) Chat(ctx context.Context, id string) (*models.DirectoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// ChatByChannelURL returns an entry by its channel URL, or nil when absent.
func (s *SQLiteStore) ChatByChannelURL(ctx context.Context, url string) (*models.DirectoryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE channel_url = ?`, url)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// RecordSearchMatch records that an entry matched a query, with source stage
// and confidence.
func (s *SQLiteStore) RecordSearchMatch(ctx context.Context, entryID, query, source string, confidence float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_matches (entry_id, query, source, confidence, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		entryID, query, source, confidence, time.Now(),
	)
	return err
}

// CountEntries returns the total number of cached entries.
func (s *SQLiteStore) CountEntries(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entries`).Scan(&count)
	return count, err
}

// Close closes the database and the entry index.
func (s *SQLiteStore) Close() error {
	if s.index != nil {
		_ = s.index.Close()
	}
	return s.db.Close()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row scanner) (*models.DirectoryEntry, error) {
	var e models.DirectoryEntry
	var kind, channelsJSON string
	err := row.Scan(
		&e.ID, &kind, &e.Name, &e.Nickname, &e.Email, &e.Bio, &e.Department,
		&e.AvatarURL, &e.Provenance, &e.IsPinned, &e.IsRecent,
		&e.InteractionCount, &channelsJSON, &e.DirectChannelID, &e.ChannelURL,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Kind = models.EntryKind(kind)
	if channelsJSON != "" && channelsJSON != "[]" {
		if err := json.Unmarshal([]byte(channelsJSON), &e.SharedChannels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal shared channels: %w", err)
		}
	}
	return &e, nil
}
