package comments

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shouni/go-yt-comments/pkg/metrics"
	"github.com/shouni/go-yt-comments/pkg/parser"
	"github.com/shouni/go-yt-comments/pkg/scrapeerr"
	"github.com/shouni/go-yt-comments/pkg/types"
)

// Fetcher は1ページ分のコメント取得パイプラインを実行します。
// カーソル解決 → ページ取得 → スレッド分割 → 解析 → リプライ補完 の順に処理します。
type Fetcher struct {
	resolver    FirstPageTokenResolver
	pages       PageFetcher
	tokenize    Tokenizer
	parseThread ThreadParser
	enricher    *Enricher
}

type fetcherConfig struct {
	parser        *parser.Parser
	resolver      FirstPageTokenResolver
	tokenize      Tokenizer
	parseThread   ThreadParser
	replies       RepliesFetcher
	concurrency   int
	maxReplyPages int
}

// Option は Fetcher の構成を変更します。
type Option func(*fetcherConfig)

// WithParser はスレッドとリプライの解析に使う Parser を設定します。
func WithParser(p *parser.Parser) Option {
	return func(c *fetcherConfig) { c.parser = p }
}

// WithResolver は最初のページのカーソル解決を差し替えます。
func WithResolver(r FirstPageTokenResolver) Option {
	return func(c *fetcherConfig) { c.resolver = r }
}

// WithTokenizer はページのスレッド分割を差し替えます。
func WithTokenizer(t Tokenizer) Option {
	return func(c *fetcherConfig) { c.tokenize = t }
}

// WithThreadParser はスレッドの解析を差し替えます。
func WithThreadParser(p ThreadParser) Option {
	return func(c *fetcherConfig) { c.parseThread = p }
}

// WithRepliesFetcher はリプライ取得を差し替えます。
func WithRepliesFetcher(r RepliesFetcher) Option {
	return func(c *fetcherConfig) { c.replies = r }
}

// WithReplyConcurrency はリプライ取得の同時実行数を設定します。
func WithReplyConcurrency(n int) Option {
	return func(c *fetcherConfig) { c.concurrency = n }
}

// WithMaxReplyPages は1コメントあたりのリプライページ数の上限を設定します。
func WithMaxReplyPages(n int) Option {
	return func(c *fetcherConfig) { c.maxReplyPages = n }
}

// NewFetcher は API を使う Fetcher を生成します。各段階はオプションで差し替えられます。
func NewFetcher(api API, opts ...Option) (*Fetcher, error) {
	if api == nil {
		return nil, errors.New("API cannot be nil")
	}

	cfg := &fetcherConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.parser == nil {
		cfg.parser = parser.New()
	}
	if cfg.resolver == nil {
		cfg.resolver = NewTokenResolver(api)
	}
	if cfg.tokenize == nil {
		cfg.tokenize = parser.Tokenize
	}
	if cfg.parseThread == nil {
		cfg.parseThread = cfg.parser.ParseThread
	}
	if cfg.replies == nil {
		cfg.replies = NewReplyFetcher(api, cfg.parser, cfg.maxReplyPages)
	}

	return &Fetcher{
		resolver:    cfg.resolver,
		pages:       api,
		tokenize:    cfg.tokenize,
		parseThread: cfg.parseThread,
		enricher:    NewEnricher(cfg.replies, cfg.concurrency),
	}, nil
}

// Run は videoID のコメントを1ページ分取得します。
// pageToken が空の場合は最初のページ (新しい順) を取得します。
// 返されるエラーは *scrapeerr.NoCommentsError か *scrapeerr.Error のいずれかです。
func (f *Fetcher) Run(ctx context.Context, videoID, pageToken string) (*types.CommentsPage, error) {
	ctx, span := tracer.Start(ctx, "Fetcher.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("video.id", videoID),
		attribute.Bool("page.first", pageToken == ""),
	)

	page, err := f.run(ctx, videoID, pageToken)
	if err != nil {
		status := metrics.StatusError
		if scrapeerr.IsNoComments(err) {
			status = metrics.StatusNoComments
		} else {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch comments")
		}
		metrics.CommentPagesTotal.WithLabelValues(status).Inc()
		return nil, scrapeerr.Wrap(err, videoID, componentComments, componentComments)
	}

	metrics.CommentPagesTotal.WithLabelValues(metrics.StatusOK).Inc()
	span.SetAttributes(
		attribute.Int("comments.count", len(page.Comments)),
		attribute.Bool("page.has_next", page.NextPageToken != ""),
	)
	return page, nil
}

func (f *Fetcher) run(ctx context.Context, videoID, pageToken string) (*types.CommentsPage, error) {
	// 1. カーソルの決定
	token := pageToken
	if token == "" {
		resolved, err := f.resolver.Resolve(ctx, videoID)
		if err != nil {
			return nil, err
		}
		token = resolved
	}

	// 2. ページの取得
	raw, err := f.pages.CommentPage(ctx, videoID, token)
	if err != nil {
		return nil, scrapeerr.Wrap(err, videoID, componentComments, opFetchCommentPage)
	}

	// 3. スレッド断片への分割
	fragments, err := f.tokenize(raw.CommentHTML)
	if err != nil {
		return nil, scrapeerr.Wrap(err, videoID, componentComments, opTokenizeComments)
	}

	// 4. 各スレッドの解析 (1件でも失敗すればページ全体が失敗)
	comments := make([]types.Comment, 0, len(fragments))
	for i, fragment := range fragments {
		c, err := f.parseThread(fragment)
		if err != nil {
			return nil, scrapeerr.Wrap(fmt.Errorf("スレッド %d の解析に失敗しました: %w", i+1, err),
				videoID, componentComments, opParseCommentThread)
		}
		comments = append(comments, c)
	}
	metrics.CommentsParsedTotal.Add(float64(len(comments)))

	// 5. リプライの補完
	enriched := f.enricher.EnrichAll(ctx, videoID, comments)
	if err := ctx.Err(); err != nil {
		return nil, scrapeerr.Wrap(fmt.Errorf("リプライ補完中にキャンセルされました: %w", err),
			videoID, componentComments, opEnrichReplies)
	}

	return &types.CommentsPage{
		Comments:      enriched,
		NextPageToken: raw.NextPageToken,
	}, nil
}

// FetchComments は api を使って videoID のコメントを1ページ分取得します。
// pageToken が空の場合は最初のページを取得します。
func FetchComments(ctx context.Context, api API, videoID, pageToken string, opts ...Option) (*types.CommentsPage, error) {
	f, err := NewFetcher(api, opts...)
	if err != nil {
		return nil, err
	}
	return f.Run(ctx, videoID, pageToken)
}
