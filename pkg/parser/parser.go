package parser

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	textUtils "github.com/shouni/go-utils/text"

	"github.com/shouni/go-yt-comments/pkg/types"
)

// ----------------------------------------------------------------------
// 定数定義 (セレクター)
// ----------------------------------------------------------------------
const (
	threadSelector        = ".comment-thread-renderer"
	commentSelector       = ".comment-renderer"
	authorSelector        = ".comment-author-text"
	authorThumbSelector   = ".comment-author-thumbnail img"
	textSelector          = ".comment-renderer-text-content"
	likeCountSelector     = ".comment-renderer-like-count.off"
	timeSelector          = ".comment-renderer-time"
	repliesSelector       = ".comment-replies-renderer"
	inlineRepliesSelector = ".comment-replies-renderer-pages " + commentSelector
	loadMoreSelector      = ".load-more-button"

	// loadMoreAttr は "page_token=<URLエンコード済みトークン>" 形式のPOSTボディを保持します。
	loadMoreAttr = "data-uix-load-more-post-body"
)

var (
	countPattern  = regexp.MustCompile(`(\d[\d,]*)`)
	editedPattern = regexp.MustCompile(`(?i)\s*\(edited\)\s*$`)
)

// Parser は、コメントスレッドの断片を types.Comment に変換します。
type Parser struct {
	now func() time.Time
}

// Option は Parser の設定を行うための関数型です。
type Option func(*Parser)

// WithClock は相対時刻の基準となる時計を設定します。
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// New は新しい Parser を生成します。
func New(opts ...Option) *Parser {
	p := &Parser{now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseThread は1スレッド分の断片を解析し、トップレベルのコメントを返します。
// インラインのリプライが含まれている場合は Replies に格納します。
func (p *Parser) ParseThread(fragment string) (types.Comment, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return types.Comment{}, fmt.Errorf("コメントスレッドのHTML解析に失敗しました: %w", err)
	}

	thread := doc.Find(threadSelector).First()
	if thread.Length() == 0 {
		// 断片がスレッド要素を含まない場合は、断片全体をスレッドとして扱う
		thread = doc.Selection
	}

	// 1. スレッド直下のコメント本体
	root := thread.Find(commentSelector).Not(repliesSelector + " " + commentSelector).First()
	if root.Length() == 0 {
		return types.Comment{}, fmt.Errorf("コメント要素 (%s) が見つかりません", commentSelector)
	}

	comment, err := p.parseComment(root)
	if err != nil {
		return types.Comment{}, err
	}

	// 2. リプライ情報
	replies := thread.Find(repliesSelector).First()
	if replies.Length() == 0 {
		return comment, nil
	}

	if btn := replies.Find(loadMoreSelector).First(); btn.Length() > 0 {
		token, ok := loadMoreToken(btn)
		if ok {
			comment.HasReplies = true
			comment.RepliesToken = token
			comment.NumReplies = declaredReplyCount(btn.Text())
			return comment, nil
		}
	}

	var inline []types.Comment
	var parseErr error
	replies.Find(inlineRepliesSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		r, err := p.parseComment(s)
		if err != nil {
			parseErr = fmt.Errorf("インラインリプライの解析に失敗しました: %w", err)
			return false
		}
		inline = append(inline, r)
		return true
	})
	if parseErr != nil {
		return types.Comment{}, parseErr
	}

	if len(inline) > 0 {
		comment.HasReplies = true
		comment.NumReplies = len(inline)
		comment.Replies = inline
	}
	return comment, nil
}

// ParseReplies はリプライAPIが返すHTMLからリプライを順番通りに抽出します。
// 「さらに読み込む」ボタンがある場合は、そのデコード済みカーソルを next として返します。
func (p *Parser) ParseReplies(html string) (replies []types.Comment, next string, err error) {
	if strings.TrimSpace(html) == "" {
		return nil, "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, "", fmt.Errorf("リプライHTMLの解析に失敗しました: %w", err)
	}

	doc.Find(commentSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		r, perr := p.parseComment(s)
		if perr != nil {
			err = fmt.Errorf("リプライの解析に失敗しました: %w", perr)
			return false
		}
		replies = append(replies, r)
		return true
	})
	if err != nil {
		return nil, "", err
	}

	if btn := doc.Find(loadMoreSelector).First(); btn.Length() > 0 {
		next, _ = loadMoreToken(btn)
	}
	return replies, next, nil
}

// NextPageToken は load_more_widget_html から次ページのカーソルを取り出します。
// ウィジェットが空、またはボタンが無い場合は空文字列を返します。
func NextPageToken(widgetHTML string) string {
	if strings.TrimSpace(widgetHTML) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(widgetHTML))
	if err != nil {
		return ""
	}
	token, _ := loadMoreToken(doc.Find(loadMoreSelector).First())
	return token
}

// parseComment は .comment-renderer 要素1件を types.Comment に変換します。
func (p *Parser) parseComment(s *goquery.Selection) (types.Comment, error) {
	id, ok := s.Attr("data-cid")
	if !ok || id == "" {
		return types.Comment{}, fmt.Errorf("コメントIDの属性 (data-cid) が見つかりません")
	}

	authorSel := s.Find(authorSelector).First()
	author := textUtils.NormalizeText(authorSel.Text())
	if author == "" {
		return types.Comment{}, fmt.Errorf("コメント %s の投稿者名が見つかりません", id)
	}

	displayTime := strings.TrimSpace(s.Find(timeSelector).First().Text())

	return types.Comment{
		ID:          id,
		Author:      author,
		AuthorLink:  authorSel.AttrOr("href", ""),
		AuthorThumb: thumbnailURL(s.Find(authorThumbSelector).First()),
		Text:        commentText(s.Find(textSelector).First()),
		Likes:       parseCount(s.Find(likeCountSelector).First().Text()),
		Time:        displayTime,
		Timestamp:   p.timestamp(displayTime),
	}, nil
}

// ----------------------------------------------------------------------
// ヘルパー関数
// ----------------------------------------------------------------------

// loadMoreToken は「さらに読み込む」ボタンから page_token を取り出し、デコードします。
func loadMoreToken(btn *goquery.Selection) (string, bool) {
	body, ok := btn.Attr(loadMoreAttr)
	if !ok {
		return "", false
	}
	values, err := url.ParseQuery(body)
	if err != nil {
		return "", false
	}
	token := values.Get("page_token")
	return token, token != ""
}

// declaredReplyCount は "View all 12 replies" のような文言から件数を取り出します。
// 数字が無い場合 ("View reply") は1件とみなします。
func declaredReplyCount(label string) int {
	m := countPattern.FindStringSubmatch(label)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil || n <= 0 {
		return 1
	}
	return n
}

// parseCount は "1,234" や "1.2K" 形式の数値を整数に変換します。解析できない場合は0です。
func parseCount(raw string) int {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(raw), ",", ""))
	if s == "" {
		return 0
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(s, "K"):
		multiplier, s = 1e3, strings.TrimSuffix(s, "K")
	case strings.HasSuffix(s, "M"):
		multiplier, s = 1e6, strings.TrimSuffix(s, "M")
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return int(f*multiplier + 0.5)
}

// thumbnailURL は遅延読み込みの data-thumb を優先して画像URLを返します。
func thumbnailURL(img *goquery.Selection) string {
	if thumb, ok := img.Attr("data-thumb"); ok && thumb != "" {
		return thumb
	}
	return img.AttrOr("src", "")
}

// commentText は改行 (<br>) を保持したままコメント本文を取り出します。
func commentText(s *goquery.Selection) string {
	clone := s.Clone()
	clone.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(clone.Text())
}
