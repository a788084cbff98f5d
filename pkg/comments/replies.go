package comments

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shouni/go-yt-comments/pkg/metrics"
	"github.com/shouni/go-yt-comments/pkg/parser"
	"github.com/shouni/go-yt-comments/pkg/scrapeerr"
	"github.com/shouni/go-yt-comments/pkg/types"
)

// DefaultMaxReplyPages は1コメントあたりに辿るリプライページ数の上限です。
const DefaultMaxReplyPages = 50

// ReplyFetcher はリプライカーソルを辿り、コメントのリプライをすべて集めます。
type ReplyFetcher struct {
	api      RepliesAPI
	parser   *parser.Parser
	maxPages int
}

// NewReplyFetcher は ReplyFetcher を生成します。maxPages が0以下の場合は DefaultMaxReplyPages を使います。
func NewReplyFetcher(api RepliesAPI, p *parser.Parser, maxPages int) *ReplyFetcher {
	if p == nil {
		p = parser.New()
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxReplyPages
	}
	return &ReplyFetcher{api: api, parser: p, maxPages: maxPages}
}

// FetchReplies はコメントのリプライを、サイトが返した順に連結して返します。
// ページ数の上限に達した場合、または同じカーソルが再び返された場合は、そこまでの結果を返します。
func (f *ReplyFetcher) FetchReplies(ctx context.Context, videoID string, comment types.Comment) ([]types.Comment, error) {
	ctx, span := tracer.Start(ctx, "ReplyFetcher.FetchReplies")
	defer span.End()
	span.SetAttributes(
		attribute.String("video.id", videoID),
		attribute.String("comment.id", comment.ID),
	)

	replies, err := f.fetch(ctx, videoID, comment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch replies")
		return nil, scrapeerr.Wrap(err, videoID, componentReplies, componentReplies)
	}
	span.SetAttributes(attribute.Int("replies.count", len(replies)))
	return replies, nil
}

func (f *ReplyFetcher) fetch(ctx context.Context, videoID string, comment types.Comment) ([]types.Comment, error) {
	if comment.RepliesToken == "" {
		return nil, scrapeerr.New(videoID, componentReplies, componentReplies,
			"Comment parameter object does not have a repliesToken field")
	}

	all := []types.Comment{}
	seen := make(map[string]struct{})
	token := comment.RepliesToken

	for page := 0; token != ""; page++ {
		if page >= f.maxPages {
			slog.WarnContext(ctx, "リプライページ数の上限に達したため、取得を打ち切ります",
				"videoId", videoID, "commentId", comment.ID, "maxPages", f.maxPages)
			break
		}
		if _, dup := seen[token]; dup {
			slog.WarnContext(ctx, "同じリプライカーソルが返されたため、取得を打ち切ります",
				"videoId", videoID, "commentId", comment.ID, "page", page)
			break
		}
		seen[token] = struct{}{}

		res, err := f.api.CommentReplies(ctx, videoID, token)
		if err != nil {
			return nil, err
		}
		if res == nil || res.ContentHTML == nil {
			return nil, scrapeerr.New(videoID, componentReplies, componentReplies,
				"Invalid Replies-API response, does not contain content_html field")
		}

		replies, next, err := f.parser.ParseReplies(*res.ContentHTML)
		if err != nil {
			return nil, fmt.Errorf("リプライページ %d の解析に失敗しました: %w", page+1, err)
		}
		metrics.ReplyPagesTotal.Inc()

		all = append(all, replies...)
		token = next
	}

	return all, nil
}
