package domain

import (
	"strings"
)

// GeneratedImageMIMEType は画像生成 API に要求する出力形式です。
// 生成済みのシーン画像を再びコンテンツとして送るときもこの MIME タイプを使います。
const GeneratedImageMIMEType = "image/jpeg"

// Part は PromptPayload のコンテンツ要素です。Text か Image のどちらか一方を持ちます。
type Part struct {
	Text  string
	Image *InlineImage
}

// TextPart はテキストのみの Part を作ります。
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart はインライン画像の Part を作ります。
func ImagePart(mimeType string, data []byte) Part {
	return Part{Image: &InlineImage{MIMEType: mimeType, Data: data}}
}

// PromptPayload は GenerativeClient に一度だけ渡されるシステム指示とコンテンツです。
// 構築後に変更してはいけません。
type PromptPayload struct {
	SystemInstruction string
	Parts             []Part
}

// ImageCount はペイロードに含まれる画像 Part の数を返します。
func (p PromptPayload) ImageCount() int {
	n := 0
	for _, part := range p.Parts {
		if part.Image != nil {
			n++
		}
	}
	return n
}

// ContentOptions は構造化コンテンツ生成のオプションです。
type ContentOptions struct {
	// JSONResponse が true の場合、レスポンスを JSON に制約するよう要求します。
	JSONResponse bool
}

const noStyleGuidance = "No specific cinematic style has been selected; rely on the reference image (if provided) and scene descriptions for style cues."

// StyleGuide は選択されたシネマティックスタイルと参照画像から得たキーワードの組です。
type StyleGuide struct {
	StyleName     string
	ImageKeywords string
}

// HasNamedStyle は「No Style」以外のスタイルが選ばれているかを返します。
func (g StyleGuide) HasNamedStyle() bool {
	name := strings.TrimSpace(g.StyleName)
	return name != "" && name != NoStyleName
}

// Guidance は STYLE GUIDANCE ブロックに埋め込む文章を返します。
func (g StyleGuide) Guidance() string {
	var sb strings.Builder
	if g.HasNamedStyle() {
		sb.WriteString("Cinematic Style: ")
		sb.WriteString(strings.TrimSpace(g.StyleName))
		sb.WriteString(".")
	} else {
		sb.WriteString(noStyleGuidance)
	}
	if kw := strings.TrimSpace(g.ImageKeywords); kw != "" {
		sb.WriteString("\nReference Image Style: ")
		sb.WriteString(kw)
	}
	return sb.String()
}

// Keywords は画像プロンプトの先頭に付けるカンマ区切りのスタイル語を返します。
func (g StyleGuide) Keywords() string {
	var parts []string
	if g.HasNamedStyle() {
		parts = append(parts, strings.TrimSpace(g.StyleName))
	}
	if kw := strings.TrimSpace(g.ImageKeywords); kw != "" {
		parts = append(parts, kw)
	}
	return strings.Join(parts, ", ")
}
