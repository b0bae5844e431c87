package domain

import (
	"strings"
)

// ArtifactKind は生成する成果物の種類です。
type ArtifactKind string

const (
	KindLogo              ArtifactKind = "logo"
	KindYouTubeIntro      ArtifactKind = "youtubeIntro"
	KindStoryboard        ArtifactKind = "storyboard"
	KindExplainer         ArtifactKind = "explainer"
	KindKineticTypography ArtifactKind = "kineticTypography"
	KindNextScene         ArtifactKind = "nextScene"
	KindSceneDescriptions ArtifactKind = "sceneDescriptions"
)

// ParseArtifactKind は文字列を ArtifactKind に変換します。未知の値は false を返します。
func ParseArtifactKind(s string) (ArtifactKind, bool) {
	switch k := ArtifactKind(strings.TrimSpace(s)); k {
	case KindLogo, KindYouTubeIntro, KindStoryboard, KindExplainer,
		KindKineticTypography, KindNextScene, KindSceneDescriptions:
		return k, true
	}
	return "", false
}

// PromptFormat は AI に要求する出力 JSON の形です。
type PromptFormat string

const (
	// FormatDetailed はショットごとのオブジェクトを並べた JSON 配列です。
	FormatDetailed PromptFormat = "detailed"
	// FormatCompact は 2000 文字以内に収める単一の JSON オブジェクトです。
	FormatCompact PromptFormat = "compact"
)

// ParsePromptFormat は未知の値を FormatDetailed として扱います。
func ParsePromptFormat(s string) PromptFormat {
	if PromptFormat(strings.TrimSpace(s)) == FormatCompact {
		return FormatCompact
	}
	return FormatDetailed
}

// AspectRatio は画像生成で指定できるアスペクト比です。
type AspectRatio string

const (
	AspectWide     AspectRatio = "16:9"
	AspectStandard AspectRatio = "4:3"
)

// ParseAspectRatio は 16:9 と 4:3 以外を受け付けません。
func ParseAspectRatio(s string) (AspectRatio, bool) {
	switch r := AspectRatio(strings.TrimSpace(s)); r {
	case AspectWide, AspectStandard:
		return r, true
	}
	return "", false
}

// GeneratedArtifact は一回のワークフロー実行で得られた成果物です。
// Visuals の nil 要素は「画像なし」のスロットを表し、JSON では null になります。
type GeneratedArtifact struct {
	Kind           ArtifactKind   `json:"kind"`
	Title          string         `json:"title"`
	PromptJSONText string         `json:"prompt"`
	WellFormed     bool           `json:"well_formed"`
	Visuals        [][]byte       `json:"visuals,omitempty"`
	Inputs         ArtifactInputs `json:"inputs"`
}
