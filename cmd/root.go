package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"

	"github.com/shouni/go-yt-comments/internal/config"
	"github.com/shouni/go-yt-comments/pkg/comments"
	"github.com/shouni/go-yt-comments/pkg/youtube"
)

// --- グローバル定数 ---

const (
	appName           = "yt-comments"
	defaultTimeoutSec = 30 // 秒
	defaultMaxRetries = 3  // デフォルトのリトライ回数
)

// --- グローバル変数とフラグ構造体 ---

// AppFlags はこのアプリケーション固有の永続フラグを保持
type AppFlags struct {
	TimeoutSec       int           // --timeout タイムアウト
	MaxRetries       int           // --max-retries リトライ回数
	ReplyConcurrency int           // --reply-concurrency リプライ取得の同時実行数
	MaxReplyPages    int           // --max-reply-pages 1コメントあたりのリプライページ上限
	SessionTTL       time.Duration // --session-ttl セッショントークンのキャッシュ期間
}

var Flags AppFlags
var globalClient *youtube.Client

// --- 初期化とロジック (clibaseへのコールバックとして利用) ---

// addAppPersistentFlags は、アプリケーション固有の永続フラグをルートコマンドに追加します。
func addAppPersistentFlags(rootCmd *cobra.Command) {
	rootCmd.PersistentFlags().IntVar(&Flags.TimeoutSec, "timeout", defaultTimeoutSec,
		"HTTPリクエストのタイムアウト時間（秒）")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxRetries, "max-retries", defaultMaxRetries,
		"HTTPリクエストのリトライ最大回数")
	rootCmd.PersistentFlags().IntVar(&Flags.ReplyConcurrency, "reply-concurrency", comments.DefaultReplyConcurrency,
		"リプライ取得の同時実行数")
	rootCmd.PersistentFlags().IntVar(&Flags.MaxReplyPages, "max-reply-pages", comments.DefaultMaxReplyPages,
		"1コメントあたりに辿るリプライページ数の上限")
	rootCmd.PersistentFlags().DurationVar(&Flags.SessionTTL, "session-ttl", config.GetSessionTTL(),
		"セッショントークンのキャッシュ有効期間")
}

// initAppPreRunE は、clibase共通処理の後に実行される、アプリケーション固有のPersistentPreRunEです。
// NOTE: clibaseの PersistentPreRunE チェーンにより、clibase.Flags.Verbose はこの関数実行前に設定済み
func initAppPreRunE(cmd *cobra.Command, args []string) error {
	timeout := time.Duration(Flags.TimeoutSec) * time.Second
	if Flags.MaxRetries < 0 {
		return fmt.Errorf("--max-retries には0以上を指定してください: %d", Flags.MaxRetries)
	}

	if clibase.Flags.Verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		log.Printf("HTTPクライアントのタイムアウトを設定しました (Timeout: %s)。", timeout)
		log.Printf("HTTPクライアントのリトライ回数を設定しました (MaxRetries: %d)。", Flags.MaxRetries)
		log.Printf("セッショントークンのキャッシュ期間を設定しました (TTL: %s)。", Flags.SessionTTL)
	}

	client, err := youtube.New(
		youtube.WithBaseURL(config.GetBaseURL()),
		youtube.WithTimeout(timeout),
		youtube.WithMaxRetries(uint64(Flags.MaxRetries)),
		youtube.WithSessionTTL(Flags.SessionTTL),
	)
	if err != nil {
		return fmt.Errorf("クライアントの初期化エラー: %w", err)
	}
	globalClient = client

	return nil
}

// GetGlobalClient は、初期化されたクライアントを返す関数 (DIの代わり)
func GetGlobalClient() *youtube.Client {
	return globalClient
}

// newFetcher は共有クライアントとフラグの設定から comments.Fetcher を組み立てます。
func newFetcher() (*comments.Fetcher, error) {
	client := GetGlobalClient()
	if client == nil {
		return nil, fmt.Errorf("クライアントの取得に失敗しました")
	}
	return comments.NewFetcher(client,
		comments.WithReplyConcurrency(Flags.ReplyConcurrency),
		comments.WithMaxReplyPages(Flags.MaxReplyPages),
	)
}

// --- エントリポイント ---

// Execute は、clibase.Execute を使用してアプリケーションを実行します。
func Execute() {
	clibase.Execute(
		appName,
		addAppPersistentFlags,
		initAppPreRunE,
		commentsCmd,
		channelCmd,
		scraperCmd,
		serveCmd,
	)
}
