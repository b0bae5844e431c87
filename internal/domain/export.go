package domain

// ExportResult は成果物をリモートストレージに書き出した結果です。
type ExportResult struct {
	// StorageURI は書き出し先ディレクトリの URI です。(例: "gs://bucket/output/20261017_090000_ab12cd34")
	StorageURI string
	// PublicURL は prompt.json を閲覧するための URL です。署名できない場合は CategoryNotAvailable です。
	PublicURL string
	// Files は書き出したオブジェクトのパスです。
	Files []string
}
