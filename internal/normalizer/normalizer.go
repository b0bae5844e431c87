// Package normalizer は AI の応答テキストを構造化データまたは既定のフォールバックに変換します。
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"cinegen-web/internal/domain"
)

const indent = "  "

// jsonBlockRegex は ```json ... ``` で囲まれたブロックの中身を取り出します。
var jsonBlockRegex = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*\\S)\\s*```$")

// Result は NormalizeJSONText の結果です。
type Result struct {
	Text       string
	WellFormed bool
}

// NormalizeJSONText は raw を JSON として解釈できれば 2 スペースで整形し、できなければ raw をそのまま返します。
// 解析の失敗は想定内の結果であり、エラーにはなりません。
func NormalizeJSONText(raw string) Result {
	candidate := unwrapFence(strings.TrimSpace(raw))
	if candidate == "" || !json.Valid([]byte(candidate)) {
		return Result{Text: raw, WellFormed: false}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(candidate), "", indent); err != nil {
		return Result{Text: raw, WellFormed: false}
	}
	return Result{Text: buf.String(), WellFormed: true}
}

// ExtractSceneList は {"scenes": [string...]} からシーン一覧を取り出します。
// scenes が無い、配列でない、文字列以外を含む場合は ErrSchema です。
func ExtractSceneList(raw string) ([]string, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return nil, err
	}

	field, ok := obj["scenes"]
	if !ok {
		return nil, fmt.Errorf("%w: missing \"scenes\" field", domain.ErrSchema)
	}

	var scenes []string
	if err := json.Unmarshal(field, &scenes); err != nil || scenes == nil {
		return nil, fmt.Errorf("%w: \"scenes\" must be an array of strings", domain.ErrSchema)
	}
	return scenes, nil
}

// NextScene は続きのシーン生成の応答です。
type NextScene struct {
	Description string
	ScenePrompt json.RawMessage
}

// ExtractNextScene は説明文とシーンプロンプトの両方が揃っていることを要求します。
// キーは newSceneDescription / newScenePrompt を優先し、description / scenePrompt も受け付けます。
func ExtractNextScene(raw string) (NextScene, error) {
	obj, err := decodeObject(raw)
	if err != nil {
		return NextScene{}, err
	}

	descRaw := firstField(obj, "newSceneDescription", "description")
	promptRaw := firstField(obj, "newScenePrompt", "scenePrompt")

	var desc string
	if descRaw == nil || json.Unmarshal(descRaw, &desc) != nil || strings.TrimSpace(desc) == "" {
		return NextScene{}, fmt.Errorf("%w: scene description is missing or empty", domain.ErrSchema)
	}

	var prompt map[string]json.RawMessage
	if promptRaw == nil || json.Unmarshal(promptRaw, &prompt) != nil || len(prompt) == 0 {
		return NextScene{}, fmt.Errorf("%w: scene prompt must be a non-empty object", domain.ErrSchema)
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, promptRaw); err != nil {
		return NextScene{}, fmt.Errorf("%w: %v", domain.ErrSchema, err)
	}

	return NextScene{
		Description: strings.TrimSpace(desc),
		ScenePrompt: json.RawMessage(compact.Bytes()),
	}, nil
}

// AppendScenePrompt は JSON 配列のマスタープロンプトに要素を 1 つ追加し、整形して返します。
func AppendScenePrompt(masterJSON string, scenePrompt json.RawMessage) (string, error) {
	if !IsJSONArray(masterJSON) {
		return "", fmt.Errorf("%w: master prompt must be a JSON array", domain.ErrInvalidRequest)
	}
	var shots []json.RawMessage
	if err := json.Unmarshal([]byte(unwrapFence(strings.TrimSpace(masterJSON))), &shots); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	if !json.Valid(scenePrompt) {
		return "", fmt.Errorf("%w: scene prompt is not valid JSON", domain.ErrSchema)
	}

	shots = append(shots, scenePrompt)
	data, err := json.MarshalIndent(shots, "", indent)
	if err != nil {
		return "", fmt.Errorf("failed to encode master prompt: %w", err)
	}
	return string(data), nil
}

// IsJSONArray は s がフェンス除去後に JSON 配列として解釈できるかを返します。
func IsJSONArray(s string) bool {
	var shots []json.RawMessage
	return json.Unmarshal([]byte(unwrapFence(strings.TrimSpace(s))), &shots) == nil && shots != nil
}

// ExtractLeadDescription はプレビュー画像用の代表プロンプトを 1 つ取り出します。
// どの入力に対してもエラーを返しません。
func ExtractLeadDescription(rawJSONOrText string) string {
	candidate := unwrapFence(strings.TrimSpace(rawJSONOrText))

	var parsed any
	if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
		return rawJSONOrText
	}

	switch v := parsed.(type) {
	case []any:
		if len(v) == 0 {
			return rawJSONOrText
		}
		return describe(v[0], rawJSONOrText)
	case map[string]any:
		return describe(v, rawJSONOrText)
	default:
		return rawJSONOrText
	}
}

// describe は description が空でない文字列ならそれを、そうでなければ要素全体のシリアライズを返します。
func describe(element any, fallback string) string {
	if obj, ok := element.(map[string]any); ok {
		if desc, ok := obj["description"].(string); ok && strings.TrimSpace(desc) != "" {
			return desc
		}
	}
	data, err := json.Marshal(element)
	if err != nil || string(data) == "null" {
		return fallback
	}
	return string(data)
}

// decodeObject はフェンス除去と最外ブレースの切り出しを行い、トップレベルのオブジェクトとして解析します。
func decodeObject(raw string) (map[string]json.RawMessage, error) {
	candidate := unwrapFence(strings.TrimSpace(raw))
	if !json.Valid([]byte(candidate)) {
		first := strings.Index(candidate, "{")
		last := strings.LastIndex(candidate, "}")
		if first != -1 && last > first {
			candidate = candidate[first : last+1]
		}
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil || obj == nil {
		return nil, fmt.Errorf("%w: response is not a JSON object (excerpt: %q)", domain.ErrSchema, truncateString(raw, 200))
	}
	return obj, nil
}

func firstField(obj map[string]json.RawMessage, keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := obj[k]; ok && string(v) != "null" {
			return v
		}
	}
	return nil
}

func unwrapFence(s string) string {
	if m := jsonBlockRegex.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
