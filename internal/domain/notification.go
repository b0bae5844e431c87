package domain

const CategoryNotAvailable = "N/A"

// NotificationRequest は Slack 等の通知コンポーネントで共有されるデータ構造です。
// 生成された成果物のメタデータを通知先に伝えるために使用します。
type NotificationRequest struct {
	// Kind は成果物の種類です。(例: "storyboard", "logo")
	Kind ArtifactKind `json:"kind"`

	// TargetTitle は成果物のタイトルです。
	TargetTitle string `json:"target_title"`

	// Format は要求した出力形式です。(例: "detailed", "compact")
	Format PromptFormat `json:"format"`

	// SceneCount はシーン数、ImageCount は生成に成功した画像数です。
	SceneCount int `json:"scene_count"`
	ImageCount int `json:"image_count"`

	// WellFormed は AI の応答が正しい JSON だったかどうかです。
	WellFormed bool `json:"well_formed"`

	// OutputCategory は保存先の種別です。エクスポートしない場合は CategoryNotAvailable です。
	OutputCategory string `json:"output_category"`
}

// NewNotificationRequest は成果物から通知用のリクエストを組み立てます。
func NewNotificationRequest(a GeneratedArtifact, format PromptFormat) NotificationRequest {
	images := 0
	for _, v := range a.Visuals {
		if v != nil {
			images++
		}
	}
	return NotificationRequest{
		Kind:           a.Kind,
		TargetTitle:    a.Title,
		Format:         format,
		SceneCount:     len(a.Visuals),
		ImageCount:     images,
		WellFormed:     a.WellFormed,
		OutputCategory: CategoryNotAvailable,
	}
}
