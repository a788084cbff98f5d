package comments

import (
	"context"
	"log/slog"
	"sync"

	"github.com/shouni/go-yt-comments/pkg/metrics"
	"github.com/shouni/go-yt-comments/pkg/types"
)

// DefaultReplyConcurrency はリプライ取得を同時に実行するコメント数の既定値です。
const DefaultReplyConcurrency = 4

// Enricher は、遅延読み込みのリプライを持つコメントにリプライを付与します。
// リプライ取得の失敗はページ全体を失敗させず、そのコメントを「リプライなし」として扱います。
type Enricher struct {
	replies     RepliesFetcher
	concurrency int
}

// NewEnricher は Enricher を生成します。concurrency が0以下の場合は DefaultReplyConcurrency を使います。
func NewEnricher(replies RepliesFetcher, concurrency int) *Enricher {
	if concurrency <= 0 {
		concurrency = DefaultReplyConcurrency
	}
	return &Enricher{replies: replies, concurrency: concurrency}
}

// needsReplies は、リプライの追加取得が必要なコメントかを判定します。
// インラインのリプライを既に持つコメントは対象外です。
func needsReplies(c types.Comment) bool {
	return c.HasReplies && c.Replies == nil
}

// Enrich は1件のコメントにリプライを付与した結果を返します。引数のコメントは変更しません。
func (e *Enricher) Enrich(ctx context.Context, videoID string, c types.Comment) types.Comment {
	if !needsReplies(c) {
		return c
	}

	replies, err := e.replies.FetchReplies(ctx, videoID, c)
	if err != nil {
		metrics.ReplyEnrichmentsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
		slog.WarnContext(ctx, "リプライの取得に失敗したため、リプライなしとして扱います",
			"videoId", videoID, "commentId", c.ID, "error", err)
		return withoutReplies(c)
	}
	if len(replies) == 0 {
		metrics.ReplyEnrichmentsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
		return withoutReplies(c)
	}

	metrics.ReplyEnrichmentsTotal.WithLabelValues(metrics.OutcomeEnriched).Inc()
	c.HasReplies = true
	c.NumReplies = len(replies)
	c.Replies = replies
	return c
}

// EnrichAll はページ内のコメントを並行に補完します。結果の順序は入力と同じです。
func (e *Enricher) EnrichAll(ctx context.Context, videoID string, comments []types.Comment) []types.Comment {
	results := make([]types.Comment, len(comments))

	var wg sync.WaitGroup
	sem := make(chan struct{}, e.concurrency)

	for i, c := range comments {
		if !needsReplies(c) {
			results[i] = c
			continue
		}

		wg.Add(1)
		go func(i int, c types.Comment) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			results[i] = e.Enrich(ctx, videoID, c)
		}(i, c)
	}

	wg.Wait()
	return results
}

func withoutReplies(c types.Comment) types.Comment {
	c.HasReplies = false
	c.NumReplies = 0
	c.RepliesToken = ""
	c.Replies = nil
	return c
}
