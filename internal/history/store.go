// Package history はユーザーごとの生成履歴を保存します。
//
// Store が主要な抽象で、既定はプロセス内の MemoryStore、
// HISTORY_DB_PATH が設定されていれば SQLiteStore (modernc.org/sqlite) を使います。
// userKey が空の場合、すべての操作は何もしません。履歴はログイン中のユーザー専用の機能です。
package history

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cinegen-web/internal/domain"
)

// Store は HistoryEntry の永続化インターフェースです。エントリの更新はできません。
type Store interface {
	// Save は成果物を新しいエントリとして保存し、ID と Timestamp を設定したエントリを返します。
	// userKey が空なら nil, nil を返します。
	Save(ctx context.Context, userKey string, artifact domain.GeneratedArtifact) (*domain.HistoryEntry, error)

	// List は新しい順にエントリを返します。
	List(ctx context.Context, userKey string) ([]domain.HistoryEntry, error)

	// Delete は 1 件削除します。存在しない ID は無視します。
	Delete(ctx context.Context, userKey, id string) error

	// Clear はユーザーのエントリをすべて削除します。
	Clear(ctx context.Context, userKey string) error

	Close() error
}

// newEntry は ID とミリ秒精度のタイムスタンプを付けたエントリを作ります。
func newEntry(userKey string, artifact domain.GeneratedArtifact, now time.Time) (domain.HistoryEntry, error) {
	entry, err := domain.NewHistoryEntry(userKey, artifact)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	entry.ID = uuid.NewString()
	entry.Timestamp = now.UTC().Truncate(time.Millisecond)
	return entry, nil
}
