package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-yt-comments/pkg/types"
)

// DefaultMaxPages は FetchAllComments が辿るページ数の既定の上限です。
const DefaultMaxPages = 20

// PageRunner は1ページ分のコメントを取得します。*comments.Fetcher が満たします。
type PageRunner interface {
	Run(ctx context.Context, videoID, pageToken string) (*types.CommentsPage, error)
}

// Options は FetchAllComments の動作を指定します。
type Options struct {
	// StartToken が空の場合は最初のページから取得します。
	StartToken string
	// MaxPages が0以下の場合は DefaultMaxPages を使います。
	MaxPages int
}

// FetchAllComments は次ページのカーソルを辿り、複数ページのコメントを1つの CommentsPage にまとめます。
// 上限に達して打ち切った場合は、続きを取得するためのカーソルを NextPageToken に残します。
// 途中のページで失敗した場合は、そこまでの結果とエラーの両方を返します。
func FetchAllComments(ctx context.Context, runner PageRunner, videoID string, opts Options) (*types.CommentsPage, error) {
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	all := &types.CommentsPage{Comments: []types.Comment{}}
	seen := make(map[string]struct{})
	token := opts.StartToken

	for page := 1; ; page++ {
		// 1. 1ページ分の取得
		res, err := runner.Run(ctx, videoID, token)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			all.NextPageToken = token
			return all, fmt.Errorf("%dページ目の取得に失敗しました: %w", page, err)
		}

		all.Comments = append(all.Comments, res.Comments...)
		slog.DebugContext(ctx, "コメントページを取得しました",
			"videoId", videoID, "page", page, "comments", len(res.Comments), "hasNext", res.NextPageToken != "")

		// 2. 終了条件の判定
		if res.NextPageToken == "" {
			all.NextPageToken = ""
			return all, nil
		}
		if _, dup := seen[res.NextPageToken]; dup {
			slog.WarnContext(ctx, "同じページカーソルが返されたため、取得を打ち切ります", "videoId", videoID, "page", page)
			all.NextPageToken = ""
			return all, nil
		}
		seen[res.NextPageToken] = struct{}{}

		if page >= maxPages {
			all.NextPageToken = res.NextPageToken
			return all, nil
		}
		token = res.NextPageToken
	}
}
