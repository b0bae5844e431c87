package prompts

import (
	"embed"
	"fmt"
	"strings"

	"cinegen-web/internal/domain"
)

//go:embed templates/*.md
var templateFS embed.FS

// StyleAnalysisInstruction は参照画像からスタイルキーワードを抜き出すための指示文です。
//
//go:embed templates/style_analysis.md
var StyleAnalysisInstruction string

const (
	detailedBaseFile = "detailed_base.md"
	compactBaseFile  = "compact_base.md"
	noTextFile       = "no_text.md"
)

// roleKinds は共通のベース指示に役割ブロックを重ねる種類です。
var roleKinds = []domain.ArtifactKind{
	domain.KindLogo,
	domain.KindYouTubeIntro,
	domain.KindStoryboard,
	domain.KindExplainer,
	domain.KindKineticTypography,
}

// standaloneKinds はベース指示を使わず、単独のシステム指示を持つ種類です。
var standaloneKinds = []domain.ArtifactKind{
	domain.KindNextScene,
	domain.KindSceneDescriptions,
}

// userTemplateKinds はユーザーコンテンツを text/template で組み立てる種類です。
var userTemplateKinds = []domain.ArtifactKind{
	domain.KindLogo,
	domain.KindYouTubeIntro,
	domain.KindExplainer,
	domain.KindKineticTypography,
	domain.KindSceneDescriptions,
}

func roleFile(kind domain.ArtifactKind, format domain.PromptFormat) string {
	return fmt.Sprintf("%s_%s.md", kind, format)
}

func standaloneFile(kind domain.ArtifactKind) string {
	return fmt.Sprintf("%s.md", kind)
}

func userFile(kind domain.ArtifactKind) string {
	return fmt.Sprintf("%s_user.md", kind)
}

// readTemplate は埋め込みファイルを読み込み、前後の空白を取り除きます。
func readTemplate(name string) (string, error) {
	data, err := templateFS.ReadFile("templates/" + name)
	if err != nil {
		return "", fmt.Errorf("プロンプトテンプレート '%s' (go:embed) の読み込みに失敗しました: %w", name, err)
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("プロンプトテンプレート '%s' の内容が空です", name)
	}
	return content, nil
}
