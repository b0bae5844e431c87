package prompts

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"cinegen-web/internal/domain"
)

const noTextMarker = "CRITICAL NO-TEXT RULE"

func newTestBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder()
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return b
}

func pngImage(data string) *domain.ReferenceImage {
	return &domain.ReferenceImage{
		Filename: "logo.png",
		MIMEType: "image/png",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(data))), nil
		},
	}
}

func allTextRequests() []domain.ArtifactRequest {
	inputs := []domain.ArtifactInputs{
		domain.LogoInputs{AnimationStyle: "glitch", Tagline: "Innovate"},
		domain.YouTubeIntroInputs{ChannelName: "Go Weekly", VideoTopic: "concurrency"},
		domain.ExplainerInputs{Topic: "photosynthesis", KeyPoints: []string{"light", " ", "water"}},
		domain.KineticTypographyInputs{Script: "Build. Ship. Repeat."},
	}
	var reqs []domain.ArtifactRequest
	for _, in := range inputs {
		for _, format := range []domain.PromptFormat{domain.FormatDetailed, domain.FormatCompact} {
			for _, includeText := range []bool{true, false} {
				reqs = append(reqs, domain.ArtifactRequest{
					Format:             format,
					IncludeTextOverlay: includeText,
					ReferenceImage:     pngImage("png"),
					Inputs:             in,
				})
			}
		}
	}
	return reqs
}

func TestNewBuilder(t *testing.T) {
	b := newTestBuilder(t)

	for _, kind := range roleKinds {
		for _, format := range []domain.PromptFormat{domain.FormatDetailed, domain.FormatCompact} {
			if _, ok := b.system[systemKey{kind, format}]; !ok {
				t.Errorf("システム指示が無い: %s/%s", kind, format)
			}
		}
	}
	if StyleAnalysisInstruction == "" {
		t.Error("StyleAnalysisInstruction が埋め込まれていない")
	}
}

func TestSystemInstruction(t *testing.T) {
	b := newTestBuilder(t)

	t.Run("detailed は配列、compact は単一オブジェクトを要求する", func(t *testing.T) {
		detailed, err := b.SystemInstruction(domain.KindExplainer, domain.FormatDetailed, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(detailed, "JSON Array Output ONLY") {
			t.Errorf("detailed に配列の指示が無い")
		}

		compact, err := b.SystemInstruction(domain.KindExplainer, domain.FormatCompact, true)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(compact, "Single Compact JSON Object ONLY") || !strings.Contains(compact, "2000 characters") {
			t.Errorf("compact に単一オブジェクトの指示が無い")
		}
		if !strings.Contains(compact, "expert scriptwriter") {
			t.Errorf("役割ブロックが連結されていない")
		}
	})

	t.Run("テキストありならテキスト禁止条項は付かない", func(t *testing.T) {
		got, _ := b.SystemInstruction(domain.KindLogo, domain.FormatDetailed, true)
		if strings.Contains(got, noTextMarker) {
			t.Error("テキスト禁止条項が付いている")
		}
	})

	t.Run("未知の種類は ErrInvalidRequest", func(t *testing.T) {
		_, err := b.SystemInstruction("musicVideo", domain.FormatDetailed, true)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのに %v", err)
		}
	})
}

func TestBuild_NoTextClause(t *testing.T) {
	b := newTestBuilder(t)

	for _, req := range allTextRequests() {
		payload, err := b.Build(req)
		if err != nil {
			t.Fatalf("Build(%s) error = %v", req.Kind(), err)
		}
		has := strings.Contains(payload.SystemInstruction, noTextMarker)
		if has == req.IncludeTextOverlay {
			t.Errorf("%s/%s includeText=%v: テキスト禁止条項の有無が不正 (has=%v)",
				req.Kind(), req.Format, req.IncludeTextOverlay, has)
		}
	}
}

func TestBuild_UserContent(t *testing.T) {
	b := newTestBuilder(t)

	t.Run("ロゴはテキストの後に画像が続く", func(t *testing.T) {
		payload, err := b.Build(domain.ArtifactRequest{
			Format:             domain.FormatDetailed,
			IncludeTextOverlay: true,
			ReferenceImage:     pngImage("logo-bytes"),
			Inputs:             domain.LogoInputs{AnimationStyle: "glitch", Tagline: "Innovate"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(payload.Parts) != 2 || payload.Parts[1].Image == nil {
			t.Fatalf("parts = %+v", payload.Parts)
		}
		if string(payload.Parts[1].Image.Data) != "logo-bytes" || payload.Parts[1].Image.MIMEType != "image/png" {
			t.Errorf("画像 part が不正: %+v", payload.Parts[1].Image)
		}
		if !strings.Contains(payload.Parts[0].Text, "- Tagline (optional): Innovate") {
			t.Errorf("tagline が入っていない:\n%s", payload.Parts[0].Text)
		}
	})

	t.Run("テキスト無しならタグラインを出さない", func(t *testing.T) {
		payload, err := b.Build(domain.ArtifactRequest{
			Format:         domain.FormatCompact,
			ReferenceImage: pngImage("x"),
			Inputs:         domain.LogoInputs{Tagline: "Innovate"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := payload.Parts[0].Text
		if strings.Contains(text, "Innovate") || !strings.Contains(text, "Do not add any text overlays") {
			t.Errorf("tagline の抑止が効いていない:\n%s", text)
		}
	})

	t.Run("ロゴ画像が無ければ ErrInvalidRequest", func(t *testing.T) {
		_, err := b.Build(domain.ArtifactRequest{Inputs: domain.LogoInputs{}})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのに %v", err)
		}
	})

	t.Run("ロゴ画像が読めなければ ErrFileRead", func(t *testing.T) {
		_, err := b.Build(domain.ArtifactRequest{
			ReferenceImage: &domain.ReferenceImage{
				Filename: "gone.png",
				Open:     func() (io.ReadCloser, error) { return nil, errors.New("permission denied") },
			},
			Inputs: domain.LogoInputs{},
		})
		if !errors.Is(err, domain.ErrFileRead) {
			t.Errorf("ErrFileRead を期待したのに %v", err)
		}
	})

	t.Run("イントロはテキスト無しで名前の描画を禁止する", func(t *testing.T) {
		payload, err := b.Build(domain.ArtifactRequest{
			Inputs: domain.YouTubeIntroInputs{ChannelName: "Go Weekly", Energy: "high"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		text := payload.Parts[0].Text
		if !strings.Contains(text, "- Channel Name: Go Weekly") || !strings.Contains(text, "Do not render the Channel Name") {
			t.Errorf("unexpected text:\n%s", text)
		}
	})

	t.Run("解説のキーポイントは空白を除いて連結する", func(t *testing.T) {
		payload, err := b.Build(domain.ArtifactRequest{
			IncludeTextOverlay: true,
			Inputs:             domain.ExplainerInputs{Topic: "DNS", KeyPoints: []string{"resolvers", "  ", "caching"}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(payload.Parts[0].Text, "- Key Points to Cover: resolvers; caching") {
			t.Errorf("unexpected text:\n%s", payload.Parts[0].Text)
		}
	})

	t.Run("キーポイントが無ければ自動生成を指示する", func(t *testing.T) {
		payload, err := b.Build(domain.ArtifactRequest{
			IncludeTextOverlay: true,
			Inputs:             domain.ExplainerInputs{Topic: "DNS", KeyPoints: []string{" "}},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(payload.Parts[0].Text, "- Key Points to Cover: Auto-generate key points.") {
			t.Errorf("unexpected text:\n%s", payload.Parts[0].Text)
		}
	})

	t.Run("シーン分割は丸めたシーン数を渡す", func(t *testing.T) {
		payload, err := b.Build(domain.ArtifactRequest{
			Inputs: domain.SceneDescriptionInputs{GeneralIdea: "a heist on Mars", SceneCount: 25},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "General Idea: \"a heist on Mars\"\nNumber of Scenes: 10"
		if payload.Parts[0].Text != want {
			t.Errorf("got %q, want %q", payload.Parts[0].Text, want)
		}
		if !strings.Contains(payload.SystemInstruction, `"scenes"`) {
			t.Error("scenes スキーマの指示が無い")
		}
	})

	t.Run("ストーリーボードは専用ビルダーを使う", func(t *testing.T) {
		_, err := b.Build(domain.ArtifactRequest{Inputs: domain.StoryboardInputs{}})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのに %v", err)
		}
	})
}

func TestBuildStoryboard(t *testing.T) {
	b := newTestBuilder(t)
	scenes := []domain.SceneSpec{
		{Description: "A detective enters the alley", ShotCount: 3},
		{Description: "   ", ShotCount: 2},
		{Description: "He finds a key", ShotCount: 42},
	}
	images := [][]byte{[]byte("img0"), nil, []byte("img2")}
	guide := domain.StyleGuide{StyleName: "Noir Thriller", ImageKeywords: "moody"}

	t.Run("detailed はショット数を含め、画像はシーン自身の添字で付く", func(t *testing.T) {
		payload, err := b.BuildStoryboard(domain.ArtifactRequest{
			Format:             domain.FormatDetailed,
			IncludeTextOverlay: true,
			Inputs:             domain.StoryboardInputs{Scenes: scenes},
		}, guide, images)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// intro, style, scene1, img0, scene2, img2
		if len(payload.Parts) != 6 {
			t.Fatalf("len(parts) = %d, want 6", len(payload.Parts))
		}
		if !strings.HasPrefix(payload.Parts[1].Text, "--- STYLE GUIDANCE ---\nCinematic Style: Noir Thriller.") {
			t.Errorf("style part = %q", payload.Parts[1].Text)
		}
		if !strings.Contains(payload.Parts[2].Text, "Number of Shots to Generate for this Scene: 3") {
			t.Errorf("scene 1 = %q", payload.Parts[2].Text)
		}
		if string(payload.Parts[3].Image.Data) != "img0" {
			t.Errorf("scene 1 の画像が違う")
		}
		if !strings.HasPrefix(payload.Parts[4].Text, "--- Scene 2 ---\nDescription: He finds a key") ||
			!strings.Contains(payload.Parts[4].Text, "Scene: 10") {
			t.Errorf("scene 2 = %q", payload.Parts[4].Text)
		}
		if string(payload.Parts[5].Image.Data) != "img2" {
			t.Errorf("scene 2 に別のシーンの画像が付いている: %q", payload.Parts[5].Image.Data)
		}
		if payload.Parts[5].Image.MIMEType != domain.GeneratedImageMIMEType {
			t.Errorf("MIME = %q", payload.Parts[5].Image.MIMEType)
		}
	})

	t.Run("compact はショット数の指示を一切含まない", func(t *testing.T) {
		payload, err := b.BuildStoryboard(domain.ArtifactRequest{
			Format: domain.FormatCompact,
			Inputs: domain.StoryboardInputs{Scenes: scenes},
		}, guide, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, p := range payload.Parts {
			if strings.Contains(p.Text, "Number of Shots") {
				t.Errorf("compact にショット数が含まれている: %q", p.Text)
			}
		}
		if payload.ImageCount() != 0 {
			t.Errorf("画像が無いのに image part がある")
		}
		if !strings.Contains(payload.SystemInstruction, noTextMarker) {
			t.Error("テキスト禁止条項が無い")
		}
	})

	t.Run("空でないシーンが無ければ ErrInvalidRequest", func(t *testing.T) {
		_, err := b.BuildStoryboard(domain.ArtifactRequest{
			Inputs: domain.StoryboardInputs{Scenes: []domain.SceneSpec{{Description: " "}}},
		}, guide, nil)
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのに %v", err)
		}
	})
}

func TestBuildNextScene(t *testing.T) {
	b := newTestBuilder(t)
	master := `[{"description":"one"},{"description":"two"}]`

	payload, err := b.BuildNextScene(domain.ArtifactRequest{
		Inputs: domain.NextSceneInputs{
			ExistingMasterPrompt: master,
			ExistingScenes:       []string{"first", "", "third"},
			ExistingVisuals:      [][]byte{[]byte("a"), []byte("b")},
		},
	}, domain.StyleGuide{StyleName: domain.NoStyleName})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var texts []string
	for _, p := range payload.Parts {
		if p.Image == nil {
			texts = append(texts, p.Text)
		}
	}
	joined := strings.Join(texts, "\n")
	for _, want := range []string{
		"--- EXISTING SCENES & VISUALS ---",
		"Scene 1 Description: first",
		"Scene 3 Description: third",
		"--- EXISTING DIRECTOR'S PROMPTS (JSON) ---",
		master,
		"generate the next logical scene",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("%q が含まれていない", want)
		}
	}
	if payload.ImageCount() != 1 {
		t.Errorf("ImageCount() = %d, want 1", payload.ImageCount())
	}
	if !strings.Contains(payload.SystemInstruction, "newScenePrompt") || !strings.Contains(payload.SystemInstruction, noTextMarker) {
		t.Errorf("システム指示が不正")
	}

	t.Run("マスタープロンプトが空なら ErrInvalidRequest", func(t *testing.T) {
		_, err := b.BuildNextScene(domain.ArtifactRequest{Inputs: domain.NextSceneInputs{}}, domain.StyleGuide{})
		if !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("ErrInvalidRequest を期待したのに %v", err)
		}
	})
}
