package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/shouni/go-yt-comments/internal/pipeline"
	"github.com/shouni/go-yt-comments/pkg/scrapeerr"
	"github.com/shouni/go-yt-comments/pkg/types"
	"github.com/shouni/go-yt-comments/pkg/youtube"
)

var (
	pageToken string // --page-token 取得を開始するカーソル
	fetchAll  bool   // --all 次ページを辿って全件取得する
	maxPages  int    // --max-pages --all 時のページ数上限
)

var commentsCmd = &cobra.Command{
	Use:   "comments <video-id | video-url>",
	Short: "動画のコメントを新しい順に取得し、JSONで出力します",
	Long: `動画IDまたは動画URLを受け取り、コメントを新しい順に1ページ取得してJSONで標準出力に書き出します。
--page-token で続きのページを、--all で最後のページまで (--max-pages を上限として) 取得します。`,
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 動画IDの特定
		videoID, err := youtube.ParseVideoID(args[0])
		if err != nil {
			return err
		}

		// 2. 依存性の初期化
		fetcher, err := newFetcher()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		// 3. メインロジックの実行
		var page *types.CommentsPage
		if fetchAll {
			page, err = pipeline.FetchAllComments(ctx, fetcher, videoID, pipeline.Options{
				StartToken: pageToken,
				MaxPages:   maxPages,
			})
			if err != nil && page != nil {
				// 途中までの結果は出力し、続きのカーソルを案内する
				log.Printf("途中のページで失敗しました。続きは --page-token %q で再開できます: %v", page.NextPageToken, err)
				err = nil
			}
		} else {
			page, err = fetcher.Run(ctx, videoID, pageToken)
		}
		if err != nil {
			if scrapeerr.IsNoComments(err) {
				log.Printf("動画 %s にはコメントがありません。", videoID)
				return writeJSON(&types.CommentsPage{Comments: []types.Comment{}})
			}
			return err
		}

		// 4. 結果の出力
		return writeJSON(page)
	},
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("JSONの出力に失敗しました: %w", err)
	}
	return nil
}

func init() {
	commentsCmd.Flags().StringVar(&pageToken, "page-token", "",
		"取得を開始するページカーソル (前回出力の nextPageToken)")
	commentsCmd.Flags().BoolVarP(&fetchAll, "all", "a", false,
		"次ページを辿ってすべてのコメントを取得する")
	commentsCmd.Flags().IntVar(&maxPages, "max-pages", pipeline.DefaultMaxPages,
		"--all 指定時に取得するページ数の上限")
}
