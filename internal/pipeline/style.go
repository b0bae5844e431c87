package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"cinegen-web/internal/domain"
)

// styleAnalyzer は画像内容のハッシュをキーにスタイル解析の結果を使い回します。
// 同じ画像の同時解析は singleflight で 1 回にまとめ、失敗はキャッシュしません。
type styleAnalyzer struct {
	client GenerativeClient
	cache  *cache.Cache // nil ならキャッシュしない
	group  singleflight.Group
}

func newStyleAnalyzer(client GenerativeClient, ttl time.Duration) *styleAnalyzer {
	s := &styleAnalyzer{client: client}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func (s *styleAnalyzer) analyze(ctx context.Context, img domain.InlineImage) (string, error) {
	sum := sha256.Sum256(img.Data)
	key := hex.EncodeToString(sum[:])

	if keywords, ok := s.lookup(key); ok {
		return keywords, nil
	}

	val, err, _ := s.group.Do(key, func() (interface{}, error) {
		// 待機中に他のゴルーチンが解析を終えている可能性があるため、再度確認します。
		if keywords, ok := s.lookup(key); ok {
			return keywords, nil
		}

		keywords, err := s.client.AnalyzeStyle(ctx, img)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			s.cache.SetDefault(key, keywords)
		}
		return keywords, nil
	})
	if err != nil {
		return "", err
	}

	keywords, ok := val.(string)
	if !ok {
		return "", fmt.Errorf("unexpected return type from singleflight: %T", val)
	}
	return keywords, nil
}

func (s *styleAnalyzer) lookup(key string) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	v, ok := s.cache.Get(key)
	if !ok {
		return "", false
	}
	keywords, ok := v.(string)
	return keywords, ok
}

// resolveStyleGuide は StyleAnalysis 段階を実行します。参照画像が無ければ段階ごと省略します。
// 画像の読み込みや解析に失敗しても中断せず、キーワード無しのスタイルガイドで続行します。
func (o *StoryboardOrchestrator) resolveStyleGuide(ctx context.Context, exec *execution, ref *domain.ReferenceImage, styleName string) domain.StyleGuide {
	guide := domain.StyleGuide{StyleName: styleName}
	if ref == nil {
		return guide
	}

	exec.enter(ctx, StageStyleAnalysis)

	img, err := ref.Load()
	if err != nil {
		exec.logger.WarnContext(ctx, "Failed to read style image, proceeding without it", "error", err)
		return guide
	}

	keywords, err := o.style.analyze(ctx, img)
	if err != nil {
		exec.logger.WarnContext(ctx, "Failed to analyze image style, proceeding without it", "error", err)
		return guide
	}

	guide.ImageKeywords = keywords
	exec.logger.InfoContext(ctx, "Image style analyzed", "keywords", keywords)
	return guide
}
