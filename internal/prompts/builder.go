// Package prompts は成果物の種類と出力形式に応じたシステム指示とユーザーコンテンツを組み立てます。
// ネットワークには一切アクセスしません。
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"cinegen-web/internal/domain"
)

const (
	storyboardIntroDetailed = "Based on the following storyboard scenes (text and images), and adhering to the specified cinematic and technical guidance, create a JSON array of detailed shot prompts."
	storyboardIntroCompact  = "Based on the following storyboard scenes (text and images), and adhering to the specified cinematic and technical guidance, create a single, compact JSON prompt object for the whole video."

	nextSceneInstruction = "--- INSTRUCTION --- \nBased on all the context above, generate the next logical scene."
)

type systemKey struct {
	kind   domain.ArtifactKind
	format domain.PromptFormat
}

// userTemplateData はユーザーコンテンツのテンプレートに渡すデータです。
type userTemplateData struct {
	Inputs      domain.ArtifactInputs
	IncludeText bool
	SceneCount  int
}

// Builder は PromptPayload を組み立てます。生成後は読み取り専用なので並行に使えます。
type Builder struct {
	system map[systemKey]string
	noText string
	user   map[domain.ArtifactKind]*template.Template
}

// NewBuilder は埋め込みテンプレートをすべて読み込み、解析済みの Builder を返します。
func NewBuilder() (*Builder, error) {
	detailedBase, err := readTemplate(detailedBaseFile)
	if err != nil {
		return nil, err
	}
	compactBase, err := readTemplate(compactBaseFile)
	if err != nil {
		return nil, err
	}
	noText, err := readTemplate(noTextFile)
	if err != nil {
		return nil, err
	}

	bases := map[domain.PromptFormat]string{
		domain.FormatDetailed: detailedBase,
		domain.FormatCompact:  compactBase,
	}

	system := make(map[systemKey]string)
	for _, kind := range roleKinds {
		for format, base := range bases {
			role, err := readTemplate(roleFile(kind, format))
			if err != nil {
				return nil, err
			}
			system[systemKey{kind, format}] = base + "\n\n" + role
		}
	}
	for _, kind := range standaloneKinds {
		content, err := readTemplate(standaloneFile(kind))
		if err != nil {
			return nil, err
		}
		for format := range bases {
			system[systemKey{kind, format}] = content
		}
	}

	funcs := template.FuncMap{"keyPoints": joinKeyPoints}
	user := make(map[domain.ArtifactKind]*template.Template)
	for _, kind := range userTemplateKinds {
		content, err := readTemplate(userFile(kind))
		if err != nil {
			return nil, err
		}
		tmpl, err := template.New(string(kind)).Funcs(funcs).Parse(content)
		if err != nil {
			return nil, fmt.Errorf("プロンプト '%s' の解析に失敗: %w", kind, err)
		}
		user[kind] = tmpl
	}

	return &Builder{
		system: system,
		noText: noText,
		user:   user,
	}, nil
}

// SystemInstruction は種類と形式に対応するシステム指示を返します。
// includeText が false の場合は末尾にテキスト禁止の条項を付けます。
func (b *Builder) SystemInstruction(kind domain.ArtifactKind, format domain.PromptFormat, includeText bool) (string, error) {
	instruction, ok := b.system[systemKey{kind, domain.ParsePromptFormat(string(format))}]
	if !ok {
		return "", fmt.Errorf("%w: unsupported artifact kind %q", domain.ErrInvalidRequest, kind)
	}
	// シーン分割は物語の文章を作るだけなので、テキスト禁止の対象外です。
	if !includeText && kind != domain.KindSceneDescriptions {
		instruction += "\n\n" + b.noText
	}
	return instruction, nil
}

// Build は単発の生成 (logo, youtubeIntro, explainer, kineticTypography, sceneDescriptions) のペイロードを組み立てます。
// logo は参照画像を読み込み、失敗した場合は ErrFileRead を返します。
func (b *Builder) Build(req domain.ArtifactRequest) (domain.PromptPayload, error) {
	kind := req.Kind()
	switch kind {
	case domain.KindLogo, domain.KindYouTubeIntro, domain.KindExplainer,
		domain.KindKineticTypography, domain.KindSceneDescriptions:
	case domain.KindStoryboard, domain.KindNextScene:
		return domain.PromptPayload{}, fmt.Errorf("%w: %s requires the multimodal builder", domain.ErrInvalidRequest, kind)
	default:
		return domain.PromptPayload{}, fmt.Errorf("%w: unsupported artifact kind %q", domain.ErrInvalidRequest, kind)
	}

	system, err := b.SystemInstruction(kind, req.Format, req.IncludeTextOverlay)
	if err != nil {
		return domain.PromptPayload{}, err
	}

	data := userTemplateData{Inputs: req.Inputs, IncludeText: req.IncludeTextOverlay}
	if in, ok := req.Inputs.(domain.SceneDescriptionInputs); ok {
		data.SceneCount = in.NormalizedSceneCount()
	}
	text, err := b.executeUser(kind, data)
	if err != nil {
		return domain.PromptPayload{}, err
	}
	parts := []domain.Part{domain.TextPart(text)}

	if kind == domain.KindLogo {
		if req.ReferenceImage == nil {
			return domain.PromptPayload{}, fmt.Errorf("%w: logo animation requires a logo image", domain.ErrInvalidRequest)
		}
		img, err := req.ReferenceImage.Load()
		if err != nil {
			return domain.PromptPayload{}, err
		}
		parts = append(parts, domain.ImagePart(img.MIMEType, img.Data))
	}

	return domain.PromptPayload{SystemInstruction: system, Parts: parts}, nil
}

// BuildStoryboard はストーリーボードのマスタープロンプト用のマルチモーダルペイロードを組み立てます。
// sceneImages はシーンと同じ添字で並び、nil の要素は画像なしとして扱います。
func (b *Builder) BuildStoryboard(req domain.ArtifactRequest, guide domain.StyleGuide, sceneImages [][]byte) (domain.PromptPayload, error) {
	in, ok := req.Inputs.(domain.StoryboardInputs)
	if !ok {
		return domain.PromptPayload{}, fmt.Errorf("%w: storyboard inputs are required", domain.ErrInvalidRequest)
	}
	if in.NonEmptyScenes() == 0 {
		return domain.PromptPayload{}, fmt.Errorf("%w: please add at least one scene to the storyboard", domain.ErrInvalidRequest)
	}

	format := domain.ParsePromptFormat(string(req.Format))
	system, err := b.SystemInstruction(domain.KindStoryboard, format, req.IncludeTextOverlay)
	if err != nil {
		return domain.PromptPayload{}, err
	}

	intro := storyboardIntroDetailed
	if format == domain.FormatCompact {
		intro = storyboardIntroCompact
	}
	parts := []domain.Part{
		domain.TextPart(intro),
		domain.TextPart("--- STYLE GUIDANCE ---\n" + guide.Guidance()),
	}

	number := 0
	for i, scene := range in.Scenes {
		if scene.IsBlank() {
			continue
		}
		number++

		var sb strings.Builder
		fmt.Fprintf(&sb, "--- Scene %d ---\n", number)
		fmt.Fprintf(&sb, "Description: %s", strings.TrimSpace(scene.Description))
		// compact では 1 本の動画にまとめるため、ショット数の指示自体を出しません。
		if format == domain.FormatDetailed {
			fmt.Fprintf(&sb, "\nNumber of Shots to Generate for this Scene: %d", scene.NormalizedShotCount(format))
		}
		parts = append(parts, domain.TextPart(sb.String()))

		if img := imageAt(sceneImages, i); img != nil {
			parts = append(parts, domain.ImagePart(domain.GeneratedImageMIMEType, img))
		}
	}

	return domain.PromptPayload{SystemInstruction: system, Parts: parts}, nil
}

// BuildNextScene は既存の文脈すべてを含む続きのシーン生成用ペイロードを組み立てます。
func (b *Builder) BuildNextScene(req domain.ArtifactRequest, guide domain.StyleGuide) (domain.PromptPayload, error) {
	in, ok := req.Inputs.(domain.NextSceneInputs)
	if !ok {
		return domain.PromptPayload{}, fmt.Errorf("%w: next scene inputs are required", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(in.ExistingMasterPrompt) == "" {
		return domain.PromptPayload{}, fmt.Errorf("%w: existing master prompt is empty", domain.ErrInvalidRequest)
	}

	system, err := b.SystemInstruction(domain.KindNextScene, req.Format, req.IncludeTextOverlay)
	if err != nil {
		return domain.PromptPayload{}, err
	}

	parts := []domain.Part{
		domain.TextPart("--- STYLE GUIDANCE ---\n" + guide.Guidance()),
		domain.TextPart("--- EXISTING SCENES & VISUALS ---"),
	}
	for i, scene := range in.ExistingScenes {
		if strings.TrimSpace(scene) == "" {
			continue
		}
		parts = append(parts, domain.TextPart(fmt.Sprintf("Scene %d Description: %s", i+1, strings.TrimSpace(scene))))
		if img := imageAt(in.ExistingVisuals, i); img != nil {
			parts = append(parts, domain.ImagePart(domain.GeneratedImageMIMEType, img))
		}
	}
	parts = append(parts,
		domain.TextPart("--- EXISTING DIRECTOR'S PROMPTS (JSON) ---"),
		domain.TextPart(in.ExistingMasterPrompt),
		domain.TextPart(nextSceneInstruction),
	)

	return domain.PromptPayload{SystemInstruction: system, Parts: parts}, nil
}

func (b *Builder) executeUser(kind domain.ArtifactKind, data userTemplateData) (string, error) {
	tmpl, ok := b.user[kind]
	if !ok {
		return "", fmt.Errorf("%w: no user template for %q", domain.ErrInvalidRequest, kind)
	}

	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("プロンプトテンプレートの実行に失敗しました: %w", err)
	}
	return strings.TrimSpace(sb.String()), nil
}

func imageAt(images [][]byte, i int) []byte {
	if i < 0 || i >= len(images) || len(images[i]) == 0 {
		return nil
	}
	return images[i]
}

// joinKeyPoints は空白のみの項目を除いて "; " で連結します。
func joinKeyPoints(points []string) string {
	kept := make([]string, 0, len(points))
	for _, p := range points {
		if s := strings.TrimSpace(p); s != "" {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, "; ")
}
