package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"cinegen-web/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_entries (
	id         TEXT PRIMARY KEY,
	user_key   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL,
	prompt     TEXT NOT NULL,
	visuals    TEXT,
	inputs     TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_user_created
	ON history_entries (user_key, created_at DESC);`

// SQLiteStore は SQLite に履歴を保存する Store です。
// ":memory:" を渡すとインメモリのデータベースになります。
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore は SQLite のデータベースを開き (無ければ作成し)、スキーマを適用します。
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	// ":memory:" は接続ごとに別のデータベースになるため、接続を 1 本に固定します。
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, userKey string, artifact domain.GeneratedArtifact) (*domain.HistoryEntry, error) {
	if userKey == "" {
		return nil, nil
	}

	entry, err := newEntry(userKey, artifact, s.now())
	if err != nil {
		return nil, fmt.Errorf("履歴エントリの作成に失敗しました: %w", err)
	}

	var visuals sql.NullString
	if entry.Visuals != nil {
		data, err := json.Marshal(entry.Visuals)
		if err != nil {
			return nil, fmt.Errorf("encode visuals: %w", err)
		}
		visuals = sql.NullString{String: string(data), Valid: true}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history_entries (id, user_key, kind, title, prompt, visuals, inputs, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.UserKey, string(entry.Kind), entry.Title, entry.Prompt,
		visuals, string(entry.Inputs), entry.Timestamp.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert history entry: %w", err)
	}
	return &entry, nil
}

func (s *SQLiteStore) List(ctx context.Context, userKey string) ([]domain.HistoryEntry, error) {
	entries := []domain.HistoryEntry{}
	if userKey == "" {
		return entries, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, prompt, visuals, inputs, created_at
		FROM history_entries
		WHERE user_key = ?
		ORDER BY created_at DESC, rowid DESC`,
		userKey,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e         domain.HistoryEntry
			kind      string
			visuals   sql.NullString
			inputs    string
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &kind, &e.Title, &e.Prompt, &visuals, &inputs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.UserKey = userKey
		e.Kind = domain.ArtifactKind(kind)
		e.Inputs = json.RawMessage(inputs)
		e.Timestamp = time.UnixMilli(createdAt).UTC()
		if visuals.Valid && visuals.String != "" {
			if err := json.Unmarshal([]byte(visuals.String), &e.Visuals); err != nil {
				return nil, fmt.Errorf("decode visuals of %s: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) Delete(ctx context.Context, userKey, id string) error {
	if userKey == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM history_entries WHERE user_key = ? AND id = ?", userKey, id); err != nil {
		return fmt.Errorf("delete history entry %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Clear(ctx context.Context, userKey string) error {
	if userKey == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM history_entries WHERE user_key = ?", userKey); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close はデータベースを閉じます。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
