package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shouni/go-yt-comments/internal/config"
	"github.com/shouni/go-yt-comments/pkg/comments"
	"github.com/shouni/go-yt-comments/pkg/scrapeerr"
	"github.com/shouni/go-yt-comments/pkg/scraper"
	"github.com/shouni/go-yt-comments/pkg/youtube"
)

// コマンドラインフラグ変数を定義
var (
	inputVideos string // --videos フラグで受け取るカンマ区切りの動画リスト
	concurrency int    // --concurrency フラグで受け取る並列実行数
)

// runScrapePipeline は、複数動画のコメント取得を並列に実行し、結果の概要を出力します。
func runScrapePipeline(videoIDs []string, fetcher *comments.Fetcher, concurrency int) {
	// 1. Scraperの初期化
	s := scraper.NewParallelScraper(fetcher, concurrency, config.GetScrapeInterval())

	// 2. タイムアウト設定: 動画数に応じて全体のタイムアウトを決めます。
	overallTimeout := time.Duration(Flags.TimeoutSec) * time.Second * time.Duration(len(videoIDs)+1)

	// 3. 全体処理のコンテキストを設定
	ctx, cancel := context.WithTimeout(context.Background(), overallTimeout)
	defer cancel()

	log.Printf("並列取得開始 (対象動画数: %d, 最大同時実行数: %d, 全体タイムアウト: %s)\n",
		len(videoIDs), concurrency, overallTimeout)

	// 4. メインロジックの実行
	results := s.ScrapeInParallel(ctx, videoIDs)

	// 5. 結果の出力
	fmt.Println("--- 並列取得結果 ---")

	successCount := 0
	errorCount := 0

	for i, res := range results {
		switch {
		case scrapeerr.IsNoComments(res.Error):
			successCount++
			fmt.Printf("➖ [%d] %s\n", i+1, res.VideoID)
			fmt.Println("     コメントなし")
		case res.Error != nil:
			errorCount++
			fmt.Printf("❌ [%d] %s\n", i+1, res.VideoID)
			fmt.Printf("     エラー: %v\n", res.Error)
		default:
			successCount++
			fmt.Printf("✅ [%d] %s\n", i+1, res.VideoID)
			fmt.Printf("     取得コメント数: %d 件 (次ページ: %t)\n", len(res.Page.Comments), res.Page.NextPageToken != "")
			if len(res.Page.Comments) > 0 {
				latest := res.Page.Comments[0]
				fmt.Printf("     最新: %s (%s): %s\n", latest.Author, latest.Time, preview(latest.Text, 80))
			}
		}
	}

	fmt.Println("-------------------------------")
	fmt.Printf("完了: 成功 %d 件, 失敗 %d 件\n", successCount, errorCount)
}

// preview は表示用に本文を1行へまとめ、max 文字で切り詰めます。
func preview(text string, max int) string {
	line := strings.Join(strings.Fields(text), " ")
	runes := []rune(line)
	if len(runes) > max {
		return string(runes[:max]) + "..."
	}
	return line
}

// parseVideoList は入力を動画IDに変換します。特定できない入力は警告を出して除外します。
func parseVideoList(inputs []string) []string {
	var ids []string
	for _, in := range inputs {
		in = strings.TrimSpace(in)
		if in == "" {
			continue
		}
		id, err := youtube.ParseVideoID(in)
		if err != nil {
			log.Printf("スキップします: %v", err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

var scraperCmd = &cobra.Command{
	Use:   "scraper",
	Short: "複数の動画のコメントを並列で取得します",
	Long:  `--videos フラグでカンマ区切りの動画ID/URLリストを受け取るか、標準入力から一行ずつ読み込み、各動画の最新コメントを並列に取得します。`,
	Args:  cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 依存性の初期化
		fetcher, err := newFetcher()
		if err != nil {
			return err
		}

		// 2. 処理対象の動画リストを決定
		var inputs []string
		if inputVideos != "" {
			inputs = strings.Split(inputVideos, ",")
		} else {
			log.Println("動画が指定されていないため、標準入力から読み込みます (Ctrl+DまたはEOFで終了)...")
			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				inputs = append(inputs, scanner.Text())
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("標準入力の読み取りエラー: %w", err)
			}
		}

		videoIDs := parseVideoList(inputs)
		if len(videoIDs) == 0 {
			return fmt.Errorf("処理対象の動画が一つも指定されていません")
		}

		// 3. メインロジックの実行
		runScrapePipeline(videoIDs, fetcher, concurrency)
		return nil
	},
}

func init() {
	scraperCmd.Flags().StringVar(&inputVideos, "videos", "",
		"取得対象のカンマ区切り動画ID/URLリスト (例: id1,id2,https://youtu.be/id3)")
	scraperCmd.Flags().IntVarP(&concurrency, "concurrency", "c",
		scraper.DefaultMaxConcurrency,
		fmt.Sprintf("最大並列実行数 (デフォルト: %d)", scraper.DefaultMaxConcurrency))
}
