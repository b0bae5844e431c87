package prompts

import (
	"strings"

	"cinegen-web/internal/domain"
)

// TextFreeQualifier は画像生成プロンプトの末尾に付けて文字の描画を抑止する語句です。
const TextFreeQualifier = "photorealistic, high detail, text-free, no text, no writing, no letters, no words, no typography, no fonts"

// BuildImagePrompt はシーン画像用のプロンプト "<スタイル>, cinematic shot depicting <説明>" を組み立てます。
func BuildImagePrompt(guide domain.StyleGuide, description string, includeText bool) string {
	prompt := "cinematic shot depicting " + strings.TrimSpace(description)
	if style := guide.Keywords(); style != "" {
		prompt = style + ", " + prompt
	}
	return WithTextFreeQualifier(prompt, includeText)
}

// WithTextFreeQualifier は includeText が false のとき TextFreeQualifier を付けます。
// 既に付いている場合は何もしないので、何度呼んでも結果は同じです。
func WithTextFreeQualifier(prompt string, includeText bool) string {
	if includeText {
		return prompt
	}
	trimmed := strings.TrimSpace(prompt)
	if strings.HasSuffix(trimmed, TextFreeQualifier) {
		return prompt
	}
	if trimmed == "" {
		return TextFreeQualifier
	}
	return trimmed + ", " + TextFreeQualifier
}
