package prompts

import (
	"strings"
	"testing"

	"cinegen-web/internal/domain"
)

func TestBuildImagePrompt(t *testing.T) {
	tests := []struct {
		name        string
		guide       domain.StyleGuide
		description string
		includeText bool
		want        string
	}{
		{
			name:        "スタイル名とキーワードを前置する",
			guide:       domain.StyleGuide{StyleName: "Epic Fantasy", ImageKeywords: "golden hour, misty"},
			description: " a dragon over the castle ",
			includeText: true,
			want:        "Epic Fantasy, golden hour, misty, cinematic shot depicting a dragon over the castle",
		},
		{
			name:        "No Style なら前置しない",
			guide:       domain.StyleGuide{StyleName: domain.NoStyleName},
			description: "a quiet harbor",
			includeText: true,
			want:        "cinematic shot depicting a quiet harbor",
		},
		{
			name:        "テキスト無しなら文字抑止の語句を付ける",
			guide:       domain.StyleGuide{StyleName: "Cinematic"},
			description: "a neon sign",
			includeText: false,
			want:        "Cinematic, cinematic shot depicting a neon sign, " + TextFreeQualifier,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildImagePrompt(tt.guide, tt.description, tt.includeText); got != tt.want {
				t.Errorf("BuildImagePrompt() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWithTextFreeQualifier(t *testing.T) {
	t.Run("二重に付けない", func(t *testing.T) {
		once := WithTextFreeQualifier("a city at night", false)
		twice := WithTextFreeQualifier(once, false)
		if once != twice {
			t.Errorf("冪等ではない:\n%s\n%s", once, twice)
		}
		if strings.Count(twice, "text-free") != 1 {
			t.Errorf("語句が重複している: %s", twice)
		}
	})

	t.Run("テキストありなら変更しない", func(t *testing.T) {
		if got := WithTextFreeQualifier("a poster", true); got != "a poster" {
			t.Errorf("got %q", got)
		}
	})

	t.Run("空のプロンプトでも語句だけ返す", func(t *testing.T) {
		if got := WithTextFreeQualifier("  ", false); got != TextFreeQualifier {
			t.Errorf("got %q", got)
		}
	})
}
