package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/shouni/go-yt-comments/pkg/metrics"
	"github.com/shouni/go-yt-comments/pkg/retry"
)

// maxErrorBodyLen はエラーメッセージに含めるレスポンスボディの最大長です。
const maxErrorBodyLen = 1024

// NonRetryableHTTPError はHTTP 4xx系のステータスコードエラーを示すカスタムエラー型です。
type NonRetryableHTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *NonRetryableHTTPError) Error() string {
	if len(e.Body) == 0 {
		return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディなし", e.StatusCode)
	}
	body := strings.TrimSpace(string(e.Body))
	if len(body) > maxErrorBodyLen {
		body = body[:maxErrorBodyLen] + "..."
	}
	return fmt.Sprintf("HTTPクライアントエラー (非リトライ対象): ステータスコード %d, ボディ: %s", e.StatusCode, body)
}

// IsNonRetryableError は与えられたエラーが非リトライ対象のHTTPエラーであるかを判断します。
func IsNonRetryableError(err error) bool {
	var nonRetryable *NonRetryableHTTPError
	return errors.As(err, &nonRetryable)
}

// isRetryableError は retry.ShouldRetryFunc として、5xx とネットワークエラーのみをリトライ対象にします。
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return !IsNonRetryableError(err)
}

// checkResponse はステータスコードを評価し、リトライ対象か非リトライ対象のエラーを返します。
func checkResponse(res *resty.Response) error {
	code := res.StatusCode()
	if code >= 200 && code < 300 {
		return nil
	}
	if code >= http.StatusInternalServerError {
		return fmt.Errorf("HTTPステータスコードエラー (5xx リトライ対象): %d", code)
	}
	return &NonRetryableHTTPError{
		StatusCode: code,
		Body:       res.Body(),
	}
}

// request はリトライ付きで1回のHTTPリクエストを実行し、レスポンスボディを返します。
// build には毎回新しい *resty.Request が渡されます。
func (c *Client) request(ctx context.Context, endpoint, method, path string, build func(*resty.Request)) ([]byte, error) {
	var body []byte
	start := time.Now()

	op := func() error {
		req := c.http.R().SetContext(ctx)
		if build != nil {
			build(req)
		}

		res, err := req.Execute(method, path)
		if err != nil {
			return fmt.Errorf("HTTPリクエストに失敗しました (ネットワーク/接続エラー): %w", err)
		}
		if err := checkResponse(res); err != nil {
			return err
		}
		body = res.Body()
		return nil
	}

	err := retry.Do(ctx, c.retryConfig, fmt.Sprintf("%s %s", method, path), op, isRetryableError)

	metrics.YouTubeRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.YouTubeRequestsTotal.WithLabelValues(endpoint, metrics.StatusError).Inc()
		return nil, err
	}
	metrics.YouTubeRequestsTotal.WithLabelValues(endpoint, metrics.StatusOK).Inc()
	return body, nil
}
