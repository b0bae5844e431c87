package domain

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	MinShotCount  = 1
	MaxShotCount  = 10
	MinSceneCount = 1
	MaxSceneCount = 10

	// NoStyleName は「スタイル指定なし」を表す UI 上の選択肢です。
	NoStyleName = "No Style"
)

// ArtifactInputs は成果物の種類ごとのフォーム入力です。
// 参照画像などのバイナリは含まず、履歴にそのまま保存されます。
type ArtifactInputs interface {
	Kind() ArtifactKind
}

// ArtifactRequest は PromptTemplateBuilder に渡される生成リクエストです。
type ArtifactRequest struct {
	Format             PromptFormat
	IncludeTextOverlay bool
	// ReferenceImage はロゴ画像やスタイル参照画像です。不要な種類では nil です。
	ReferenceImage *ReferenceImage
	Inputs         ArtifactInputs
}

// Kind はリクエストの種類を返します。Inputs が nil の場合は空文字です。
func (r ArtifactRequest) Kind() ArtifactKind {
	if r.Inputs == nil {
		return ""
	}
	return r.Inputs.Kind()
}

type LogoInputs struct {
	AnimationStyle string `json:"animation_style"`
	Background     string `json:"background"`
	SFX            string `json:"sfx"`
	Tagline        string `json:"tagline"`
}

func (LogoInputs) Kind() ArtifactKind { return KindLogo }

type YouTubeIntroInputs struct {
	ChannelName      string `json:"channel_name"`
	VideoTopic       string `json:"video_topic"`
	VisualStyle      string `json:"visual_style"`
	Energy           string `json:"energy"`
	SpecificElements string `json:"specific_elements"`
}

func (YouTubeIntroInputs) Kind() ArtifactKind { return KindYouTubeIntro }

type ExplainerInputs struct {
	Topic       string   `json:"topic"`
	KeyPoints   []string `json:"key_points"`
	VisualStyle string   `json:"visual_style"`
	Audience    string   `json:"audience"`
	CTA         string   `json:"cta"`
	Duration    string   `json:"duration"`
}

func (ExplainerInputs) Kind() ArtifactKind { return KindExplainer }

type KineticTypographyInputs struct {
	Script       string `json:"script"`
	VisualStyle  string `json:"visual_style"`
	Energy       string `json:"energy"`
	Background   string `json:"background"`
	ColorPalette string `json:"color_palette"`
	Music        string `json:"music"`
}

func (KineticTypographyInputs) Kind() ArtifactKind { return KindKineticTypography }

// StoryboardInputs はストーリーボード生成の入力です。
type StoryboardInputs struct {
	Scenes            []SceneSpec `json:"scenes"`
	SelectedStyleName string      `json:"selected_style_name"`
	// GenerateVisuals が false の場合、シーン画像の並列生成をスキップします。
	GenerateVisuals bool `json:"generate_visuals"`
}

func (StoryboardInputs) Kind() ArtifactKind { return KindStoryboard }

// NonEmptyScenes は説明が空白でないシーンの数を返します。
func (in StoryboardInputs) NonEmptyScenes() int {
	n := 0
	for _, s := range in.Scenes {
		if !s.IsBlank() {
			n++
		}
	}
	return n
}

// NextSceneInputs は続きのシーン生成の入力です。
// ExistingMasterPrompt は JSON 配列であることを呼び出し側が保証します。
type NextSceneInputs struct {
	ExistingMasterPrompt string   `json:"existing_master_prompt"`
	ExistingVisuals      [][]byte `json:"existing_visuals"`
	ExistingScenes       []string `json:"existing_scenes"`
	SelectedStyleName    string   `json:"selected_style_name"`
}

func (NextSceneInputs) Kind() ArtifactKind { return KindNextScene }

// SceneDescriptionInputs は「大まかなアイデアから N 個のシーン」を作る入力です。
type SceneDescriptionInputs struct {
	GeneralIdea string `json:"general_idea"`
	SceneCount  int    `json:"scene_count"`
}

func (SceneDescriptionInputs) Kind() ArtifactKind { return KindSceneDescriptions }

// NormalizedSceneCount は要求シーン数を [1,10] に丸めます。
func (in SceneDescriptionInputs) NormalizedSceneCount() int {
	return clamp(in.SceneCount, MinSceneCount, MaxSceneCount)
}

// SceneSpec はユーザーが編集する 1 シーン分の入力です。
type SceneSpec struct {
	Description string `json:"description"`
	ShotCount   int    `json:"shot_count"`
}

// IsBlank は説明が空白のみかどうかを返します。
func (s SceneSpec) IsBlank() bool {
	return strings.TrimSpace(s.Description) == ""
}

// NormalizedShotCount はショット数を [1,10] に丸め、compact 形式では常に 1 を返します。
func (s SceneSpec) NormalizedShotCount(format PromptFormat) int {
	if format == FormatCompact {
		return MinShotCount
	}
	return clamp(s.ShotCount, MinShotCount, MaxShotCount)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// InlineImage はリクエストに埋め込む画像データです。
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// ReferenceImage はアップロードされた参照画像です。
// Open は何度でも呼び出せる必要があります。
type ReferenceImage struct {
	Filename string
	MIMEType string
	Open     func() (io.ReadCloser, error)
}

// Load は画像を読み込みます。失敗は ErrFileRead でラップされます。
func (img *ReferenceImage) Load() (InlineImage, error) {
	if img == nil || img.Open == nil {
		return InlineImage{}, fmt.Errorf("%w: no image source", ErrFileRead)
	}
	rc, err := img.Open()
	if err != nil {
		return InlineImage{}, fmt.Errorf("%w: open %q: %v", ErrFileRead, img.Filename, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return InlineImage{}, fmt.Errorf("%w: read %q: %v", ErrFileRead, img.Filename, err)
	}
	if len(data) == 0 {
		return InlineImage{}, fmt.Errorf("%w: %q is empty", ErrFileRead, img.Filename)
	}

	mimeType := img.MIMEType
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return InlineImage{MIMEType: mimeType, Data: data}, nil
}
