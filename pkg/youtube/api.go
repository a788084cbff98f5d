package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/shouni/go-yt-comments/pkg/metrics"
	"github.com/shouni/go-yt-comments/pkg/parser"
)

// WatchFragment は watch_fragments_ajax のレスポンスです。
// Body には "watch-discussion" などの断片名をキーとしたHTMLが入ります。
type WatchFragment struct {
	Body map[string]string `json:"body"`
}

// CommentPage はコメント1ページ分の生HTMLと次ページのカーソルです。
// NextPageToken が空文字列の場合、次のページは存在しません。
type CommentPage struct {
	CommentHTML   string
	NextPageToken string
}

// RepliesPage は action_load_replies のレスポンスです。
// ContentHTML が nil の場合、レスポンスに content_html フィールドがありません。
type RepliesPage struct {
	ContentHTML *string `json:"content_html"`
}

type commentServiceResponse struct {
	ContentHTML        *string `json:"content_html"`
	LoadMoreWidgetHTML string  `json:"load_more_widget_html"`
}

// watchPage は視聴ページのHTMLを取得します。SessionStore の取得関数として使われます。
func (c *Client) watchPage(ctx context.Context, videoID string) (string, error) {
	body, err := c.request(ctx, metrics.EndpointWatchPage, http.MethodGet, "/watch", func(r *resty.Request) {
		r.SetQueryParam("v", videoID)
	})
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// postWithSession はセッショントークンを付与してフォームをPOSTします。
func (c *Client) postWithSession(ctx context.Context, endpoint, path, videoID string, query, form map[string]string) ([]byte, error) {
	token, err := c.sessions.Token(ctx, videoID)
	if err != nil {
		return nil, err
	}

	body, err := c.request(ctx, endpoint, http.MethodPost, path, func(r *resty.Request) {
		r.SetQueryParams(query).
			SetFormData(form).
			SetFormData(map[string]string{"session_token": token})
	})
	if err != nil && IsNonRetryableError(err) {
		// 拒否されたトークンは次の呼び出しで取り直す
		c.sessions.Invalidate(videoID)
	}
	return body, err
}

// WatchFragment は動画のコメント欄を含む視聴ページ断片を取得します。
func (c *Client) WatchFragment(ctx context.Context, videoID string) (*WatchFragment, error) {
	body, err := c.postWithSession(ctx, metrics.EndpointFragment, "/watch_fragments_ajax", videoID, map[string]string{
		"v":         videoID,
		"tr":        "time",
		"distiller": "1",
		"frags":     "comments",
		"spf":       "load",
	}, nil)
	if err != nil {
		return nil, err
	}

	var wf WatchFragment
	if err := json.Unmarshal(body, &wf); err != nil {
		return nil, fmt.Errorf("watch_fragments_ajax のJSON解析に失敗しました: %w", err)
	}
	return &wf, nil
}

// CommentPage は新しい順のコメント1ページを取得します。
func (c *Client) CommentPage(ctx context.Context, videoID, pageToken string) (*CommentPage, error) {
	body, err := c.postWithSession(ctx, metrics.EndpointComments, "/comment_service_ajax", videoID, map[string]string{
		"action_load_comments": "1",
		"order_by_time":        "True",
		"filter":               videoID,
	}, map[string]string{
		"page_token": pageToken,
	})
	if err != nil {
		return nil, err
	}

	var res commentServiceResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("コメントAPIのJSON解析に失敗しました: %w", err)
	}
	if res.ContentHTML == nil {
		return nil, fmt.Errorf("Invalid comments API response, does not contain content_html field")
	}

	return &CommentPage{
		CommentHTML:   *res.ContentHTML,
		NextPageToken: parser.NextPageToken(res.LoadMoreWidgetHTML),
	}, nil
}

// CommentReplies はリプライ1ページを取得します。content_html の有無の検証は呼び出し元が行います。
func (c *Client) CommentReplies(ctx context.Context, videoID, repliesToken string) (*RepliesPage, error) {
	body, err := c.postWithSession(ctx, metrics.EndpointReplies, "/comment_service_ajax", videoID, map[string]string{
		"action_load_replies": "1",
		"order_by_time":       "True",
		"filter":              videoID,
		"tab":                 "inbox",
	}, map[string]string{
		"page_token": repliesToken,
	})
	if err != nil {
		return nil, err
	}

	var res RepliesPage
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("リプライAPIのJSON解析に失敗しました: %w", err)
	}
	return &res, nil
}

// ChannelFeed はチャンネルの新着動画フィード (Atom) を取得します。
func (c *Client) ChannelFeed(ctx context.Context, channelID string) ([]byte, error) {
	return c.request(ctx, metrics.EndpointFeed, http.MethodGet, "/feeds/videos.xml", func(r *resty.Request) {
		r.SetQueryParam("channel_id", channelID)
	})
}
