package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-yt-comments/internal/config"
	"github.com/shouni/go-yt-comments/pkg/feed"
	"github.com/shouni/go-yt-comments/pkg/scraper"
)

var (
	videoLimit         int // --limit チャンネルごとの対象動画数
	channelConcurrency int // --concurrency 並列実行数
)

var channelCmd = &cobra.Command{
	Use:   "channel [channel-id...]",
	Short: "チャンネルの新着動画のコメントを並列で取得します",
	Long: `チャンネルの動画フィードから新着動画を列挙し、各動画の最新コメントを並列に取得します。
引数を省略した場合は環境変数 YT_COMMENTS_CHANNEL_IDS のチャンネルを対象にします。`,

	RunE: func(cmd *cobra.Command, args []string) error {
		channelIDs := args
		if len(channelIDs) == 0 {
			channelIDs = config.GetChannelIDs()
		}
		if len(channelIDs) == 0 {
			return fmt.Errorf("チャンネルIDが指定されていません")
		}

		// 1. 依存性の初期化
		fetcher, err := newFetcher()
		if err != nil {
			return err
		}
		parser := feed.NewParser(GetGlobalClient())

		// 2. フィードから動画IDを列挙
		var videoIDs []string
		for _, channelID := range channelIDs {
			ctx, cancel := context.WithTimeout(context.Background(), time.Duration(Flags.TimeoutSec)*time.Second)
			ids, err := parser.VideoIDs(ctx, channelID)
			cancel()
			if err != nil {
				log.Printf("チャンネル %s のフィード取得に失敗しました: %v", channelID, err)
				continue
			}
			if videoLimit > 0 && len(ids) > videoLimit {
				ids = ids[:videoLimit]
			}
			log.Printf("チャンネル %s: %d 件の動画", channelID, len(ids))
			videoIDs = append(videoIDs, ids...)
		}

		if len(videoIDs) == 0 {
			return fmt.Errorf("対象の動画が見つかりませんでした")
		}

		// 3. メインロジックの実行
		runScrapePipeline(videoIDs, fetcher, channelConcurrency)
		return nil
	},
}

func init() {
	channelCmd.Flags().IntVarP(&videoLimit, "limit", "l", 5,
		"チャンネルごとに対象とする新着動画の数 (0で無制限)")
	channelCmd.Flags().IntVarP(&channelConcurrency, "concurrency", "c",
		scraper.DefaultMaxConcurrency,
		fmt.Sprintf("最大並列実行数 (デフォルト: %d)", scraper.DefaultMaxConcurrency))
}
