package domain

import "errors"

// ワークフローのエラー分類です。呼び出し側は errors.Is で判定します。
// 不正な JSON をそのまま返すケースはエラーではなく、GeneratedArtifact.WellFormed=false で表します。
var (
	// ErrFileRead は参照画像を読み込めなかったことを表します。
	ErrFileRead = errors.New("reference image could not be read")
	// ErrGeneration は生成 API が使えるテキストを返さなかったことを表します。
	ErrGeneration = errors.New("generation returned no usable text")
	// ErrNoImage は画像生成 API が画像を 1 枚も返さなかったことを表します。
	ErrNoImage = errors.New("no images generated from prompt")
	// ErrSchema はレスポンス JSON に必須フィールドが無いことを表します。
	ErrSchema = errors.New("response does not match the expected schema")
	// ErrInvalidRequest は呼び出し側の前提条件違反です。
	ErrInvalidRequest = errors.New("invalid request")
)
