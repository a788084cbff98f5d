package comments

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/shouni/go-yt-comments/pkg/scrapeerr"
)

const (
	watchDiscussionKey    = "watch-discussion"
	commentHeaderSelector = ".comment-section-header-renderer"
	newestFirstSelector   = ".comment-section-sort-menu li:nth-child(1) button.comment-section-sort-menu-item"
	newestFirstTokenAttr  = "data-token"
)

var commentCountPattern = regexp.MustCompile(`(?i)comments?\s*.\s*([\d,]+)`)

// TokenResolver は視聴ページ断片から「新しい順」ボタンのカーソルを取り出します。
type TokenResolver struct {
	api WatchFragmentAPI
}

// NewTokenResolver は TokenResolver を生成します。
func NewTokenResolver(api WatchFragmentAPI) *TokenResolver {
	return &TokenResolver{api: api}
}

// Resolve は最初のコメントページのカーソルを返します。
// コメントが0件の場合は *scrapeerr.NoCommentsError を、それ以外の失敗は *scrapeerr.Error を返します。
func (r *TokenResolver) Resolve(ctx context.Context, videoID string) (string, error) {
	ctx, span := tracer.Start(ctx, "TokenResolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("video.id", videoID))

	token, err := r.resolve(ctx, videoID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve first page token")
		return "", scrapeerr.Wrap(err, videoID, componentFirstPageToken, componentFirstPageToken)
	}
	return token, nil
}

func (r *TokenResolver) resolve(ctx context.Context, videoID string) (string, error) {
	// 1. 視聴ページ断片の取得
	wf, err := r.api.WatchFragment(ctx, videoID)
	if err != nil {
		return "", err
	}

	// 2. watch-discussion 断片の取り出し
	var fragment string
	var ok bool
	if wf != nil {
		fragment, ok = wf.Body[watchDiscussionKey]
	}
	if !ok {
		return "", fmt.Errorf(`Invalid API response. Missing field "%s"`, watchDiscussionKey)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("watch-discussion のHTML解析に失敗しました: %w", err)
	}

	// 3. コメント件数の確認。読み取れない場合もコメント無しとして扱う
	if commentCount(doc) <= 0 {
		return "", scrapeerr.NoComments(videoID, componentFirstPageToken, "extractToken")
	}

	// 4. 「新しい順」ボタンのトークン
	btn := doc.Find(newestFirstSelector).First()
	if btn.Length() == 0 {
		html, _ := doc.Html()
		return "", fmt.Errorf("Cannot find \"Newest First\" button element in comment watch fragment:\n%s", html)
	}

	raw, ok := btn.Attr(newestFirstTokenAttr)
	if !ok {
		return "", errors.New(`"Newest First" button is missing attribute "data-token"`)
	}

	token, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf(`"Newest First" button has a malformed "data-token": %w`, err)
	}
	if token == "" {
		return "", errors.New(`"Newest First" button has an empty "data-token"`)
	}
	return token, nil
}

// commentCount は見出しの "Comments • 1,234" から件数を読み取ります。読み取れない場合は0です。
func commentCount(doc *goquery.Document) int {
	header := doc.Find(commentHeaderSelector).First()
	if header.Length() == 0 {
		return 0
	}

	text := strings.ReplaceAll(header.Text(), ",", "")
	m := commentCountPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
