package domain

import (
	"encoding/json"
	"time"
)

// HistoryEntry はユーザーごとに保存される生成履歴です。
// 作成後に書き換えることはなく、削除のみ可能です。
type HistoryEntry struct {
	ID        string          `json:"id"`
	UserKey   string          `json:"-"`
	Kind      ArtifactKind    `json:"type"`
	Title     string          `json:"title"`
	Prompt    string          `json:"prompt"`
	Visuals   [][]byte        `json:"visuals,omitempty"`
	Inputs    json.RawMessage `json:"inputs"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewHistoryEntry は成果物から保存用のエントリを組み立てます。ID と Timestamp は呼び出し側で設定します。
func NewHistoryEntry(userKey string, a GeneratedArtifact) (HistoryEntry, error) {
	inputs := json.RawMessage("null")
	if a.Inputs != nil {
		data, err := json.Marshal(a.Inputs)
		if err != nil {
			return HistoryEntry{}, err
		}
		inputs = data
	}

	return HistoryEntry{
		UserKey: userKey,
		Kind:    a.Kind,
		Title:   a.Title,
		Prompt:  a.PromptJSONText,
		Visuals: a.Visuals,
		Inputs:  inputs,
	}, nil
}
