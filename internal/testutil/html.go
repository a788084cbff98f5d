// Package testutil は、テストで使用するコメントページのHTMLを組み立てます。
package testutil

import (
	"fmt"
	"net/url"
	"strings"
)

// CommentHTML は .comment-renderer 要素1件分の入力値です。
type CommentHTML struct {
	ID          string
	Author      string
	AuthorLink  string
	AuthorThumb string
	Text        string
	Likes       int
	Time        string
}

// Comment は .comment-renderer 要素を組み立てます。
func Comment(c CommentHTML) string {
	return fmt.Sprintf(`
<div class="comment-renderer" data-cid="%s">
  <a href="%s" class="g-hovercard comment-author-thumbnail">
    <span class="video-thumb"><span class="yt-thumb-clip"><img src="%s" alt="%s"></span></span>
  </a>
  <div class="comment-renderer-content">
    <div class="comment-renderer-header">
      <a href="%s" class="comment-author-text">%s</a>
      <span class="comment-renderer-time" tabindex="0"><a href="/watch?v=x&amp;lc=%s">%s</a></span>
    </div>
    <div class="comment-renderer-text" tabindex="0" role="article">
      <div class="comment-renderer-text-content">%s</div>
    </div>
    <div class="comment-renderer-footer">
      <div class="comment-action-buttons-toolbar">
        <span class="comment-renderer-like-count off">%d</span>
        <span class="comment-renderer-like-count on">%d</span>
      </div>
    </div>
  </div>
</div>`,
		c.ID, c.AuthorLink, c.AuthorThumb, c.Author,
		c.AuthorLink, c.Author, c.ID, c.Time,
		c.Text, c.Likes, c.Likes+1)
}

// Comments は複数の .comment-renderer 要素を連結します。
func Comments(cs ...CommentHTML) string {
	var b strings.Builder
	for _, c := range cs {
		b.WriteString(Comment(c))
	}
	return b.String()
}

// LoadMoreButton は page_token を埋め込んだ「さらに読み込む」ボタンを組み立てます。
func LoadMoreButton(token, label string) string {
	return fmt.Sprintf(`<button class="yt-uix-button load-more-button yt-uix-load-more" data-uix-load-more-post-body="page_token=%s">%s</button>`,
		url.QueryEscape(token), label)
}

// Thread は .comment-thread-renderer 要素を組み立てます。
// repliesToken が空でなければリプライ読み込みボタンを、inline が空でなければインラインリプライを含めます。
func Thread(root CommentHTML, repliesToken string, declared int, inline ...CommentHTML) string {
	var replies string
	switch {
	case repliesToken != "":
		label := "View reply"
		if declared > 1 {
			label = fmt.Sprintf("View all %d replies", declared)
		}
		replies = fmt.Sprintf(`
  <div class="comment-replies-renderer">
    <div class="yt-uix-expander comment-replies-renderer-header">%s</div>
    <div class="comment-replies-renderer-pages"></div>
  </div>`, LoadMoreButton(repliesToken, label))
	case len(inline) > 0:
		replies = fmt.Sprintf(`
  <div class="comment-replies-renderer">
    <div class="comment-replies-renderer-pages">%s</div>
  </div>`, Comments(inline...))
	}

	return fmt.Sprintf(`<section class="comment-thread-renderer">%s%s
</section>`, Comment(root), replies)
}

// WatchDiscussion は watch-discussion 断片を組み立てます。
// count が空の場合、見出しに件数を含めません。newestToken が空の場合、並び替えメニューを空にします。
func WatchDiscussion(count, newestToken string, withAttr bool) string {
	header := "<b>Comments</b>"
	if count != "" {
		header += " • " + count
	}

	menu := ""
	if newestToken != "" || withAttr {
		attr := ""
		if withAttr {
			attr = fmt.Sprintf(` data-token="%s"`, url.QueryEscape(newestToken))
		}
		menu = fmt.Sprintf(`
      <button class="yt-uix-button yt-uix-button-size-default" type="button">Sort by</button>
      <div class="yt-uix-menu-content yt-ui-menu-content" role="menu">
        <ul tabindex="0" class="yt-uix-kbd-nav yt-uix-kbd-nav-list">
          <li><button type="button" class="yt-ui-menu-item comment-section-sort-menu-item"%s data-menu_name="newest">Newest first</button></li>
          <li><button type="button" class="yt-ui-menu-item comment-section-sort-menu-item" data-token="WRONG" data-menu_name="top">Top comments</button></li>
        </ul>
      </div>`, attr)
	}

	return fmt.Sprintf(`
<div class="comment-section-renderer">
  <h2 class="comment-section-header-renderer" tabindex="0">%s<span class="alternate-content-link"></span></h2>
  <div class="yt-uix-menu comment-section-sort-menu">%s
  </div>
</div>`, header, menu)
}
