package scraper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/shouni/go-yt-comments/pkg/types"
)

const (
	// DefaultMaxConcurrency は、並列取得のデフォルトの最大同時実行数を定義します。
	DefaultMaxConcurrency = 4
	// DefaultScrapeRateLimit は、動画ごとの取得開始の最小間隔を定義します。
	DefaultScrapeRateLimit = 1000 * time.Millisecond
)

// PageRunner は1動画分のコメントページを取得します。*comments.Fetcher が満たします。
type PageRunner interface {
	Run(ctx context.Context, videoID, pageToken string) (*types.CommentsPage, error)
}

// Scraper は複数動画のコメント取得機能を提供するインターフェースです。
type Scraper interface {
	ScrapeInParallel(ctx context.Context, videoIDs []string) []types.VideoResult
}

// ParallelScraper は Scraper インターフェースを実装する並列処理構造体です。
type ParallelScraper struct {
	runner         PageRunner
	maxConcurrency int
	limiter        *rate.Limiter
}

// NewParallelScraper は ParallelScraper を初期化します。
// interval が0以下の場合は DefaultScrapeRateLimit を使います。
func NewParallelScraper(runner PageRunner, maxConcurrency int, interval time.Duration) *ParallelScraper {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if interval <= 0 {
		interval = DefaultScrapeRateLimit
	}
	return &ParallelScraper{
		runner:         runner,
		maxConcurrency: maxConcurrency,
		limiter:        rate.NewLimiter(rate.Every(interval), 1),
	}
}

// ScrapeInParallel は各動画の最初のコメントページを並列に取得します。
// 結果は入力と同じ順序で返され、個々の失敗は VideoResult.Error に格納されます。
func (s *ParallelScraper) ScrapeInParallel(ctx context.Context, videoIDs []string) []types.VideoResult {
	var wg sync.WaitGroup
	results := make([]types.VideoResult, len(videoIDs))

	// バッファ付きチャネルをセマフォとして使用し、同時実行数を制限する
	semaphore := make(chan struct{}, s.maxConcurrency)

	for i, id := range videoIDs {
		wg.Add(1)

		go func(i int, videoID string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			// レートリミット間隔が経過するまで待機
			if err := s.limiter.Wait(ctx); err != nil {
				results[i] = types.VideoResult{VideoID: videoID, Error: err}
				return
			}

			page, err := s.runner.Run(ctx, videoID, "")
			if err != nil {
				slog.WarnContext(ctx, "コメントの取得に失敗しました", "videoId", videoID, "error", err)
			}
			results[i] = types.VideoResult{
				VideoID: videoID,
				Page:    page,
				Error:   err,
			}
		}(i, id)
	}

	wg.Wait()
	return results
}
