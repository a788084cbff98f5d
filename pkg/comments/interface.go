package comments

import (
	"context"

	"go.opentelemetry.io/otel"

	"github.com/shouni/go-yt-comments/pkg/types"
	"github.com/shouni/go-yt-comments/pkg/youtube"
)

var tracer = otel.Tracer("github.com/shouni/go-yt-comments/pkg/comments")

// エラーに記録するコンポーネント名
const (
	componentFirstPageToken = "fetch-first-page-token"
	componentReplies        = "fetch-replies"
	componentComments       = "fetch-comments"
)

// fetch-comments の各段階で記録する操作名
const (
	opFetchCommentPage   = "fetchCommentPage"
	opTokenizeComments   = "tokenizeComments"
	opParseCommentThread = "parseCommentThread"
	opEnrichReplies      = "enrichReplies"
)

// ----------------------------------------------------------------------
// 依存性の定義 (DIP)
// ----------------------------------------------------------------------

// WatchFragmentAPI は、コメント欄を含む視聴ページ断片を取得します。
type WatchFragmentAPI interface {
	WatchFragment(ctx context.Context, videoID string) (*youtube.WatchFragment, error)
}

// PageFetcher は、カーソルを指定してコメント1ページ分の生HTMLを取得します。
type PageFetcher interface {
	CommentPage(ctx context.Context, videoID, pageToken string) (*youtube.CommentPage, error)
}

// RepliesAPI は、リプライ1ページ分の生HTMLを取得します。
type RepliesAPI interface {
	CommentReplies(ctx context.Context, videoID, repliesToken string) (*youtube.RepliesPage, error)
}

// API は、パイプライン全体が依存する外部エンドポイントの集合です。*youtube.Client が満たします。
type API interface {
	WatchFragmentAPI
	PageFetcher
	RepliesAPI
}

// FirstPageTokenResolver は、新しい順の最初のページを要求するためのカーソルを解決します。
type FirstPageTokenResolver interface {
	Resolve(ctx context.Context, videoID string) (string, error)
}

// RepliesFetcher は、コメントのリプライをすべて取得します。
type RepliesFetcher interface {
	FetchReplies(ctx context.Context, videoID string, comment types.Comment) ([]types.Comment, error)
}

// Tokenizer は1ページ分のHTMLをスレッド断片に分割します。
type Tokenizer func(html string) ([]string, error)

// ThreadParser はスレッド断片1件をコメントに変換します。
type ThreadParser func(fragment string) (types.Comment, error)
