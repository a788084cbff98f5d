package feed

import (
	"bytes"
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/shouni/go-yt-comments/pkg/youtube"
)

// Parserが依存すべきインターフェース。*youtube.Client が満たします。
type Fetcher interface {
	ChannelFeed(ctx context.Context, channelID string) ([]byte, error)
}

// Parser はチャンネルの動画フィードを取得し、パースします。
type Parser struct {
	client Fetcher
}

// NewParser は新しい Parser インスタンスを初期化し、依存関係を注入します。
func NewParser(client Fetcher) *Parser {
	return &Parser{client: client}
}

// FetchAndParse はチャンネルのフィードを取得し、パースします。
func (p *Parser) FetchAndParse(ctx context.Context, channelID string) (*gofeed.Feed, error) {
	body, err := p.client.ChannelFeed(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("フィードの取得失敗 (チャンネル: %s): %w", channelID, err)
	}

	fp := gofeed.NewParser()
	feed, parseErr := fp.Parse(bytes.NewReader(body))
	if parseErr != nil {
		return nil, fmt.Errorf("フィードのパース失敗 (チャンネル: %s): %w", channelID, parseErr)
	}
	return feed, nil
}

// VideoIDs はチャンネルの新着動画の動画IDを、フィードの掲載順で返します。
func (p *Parser) VideoIDs(ctx context.Context, channelID string) ([]string, error) {
	feed, err := p.FetchAndParse(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return GetAllVideoIDs(NewFeedAdapter(feed)), nil
}

// VideoSource は、動画IDのリストを提供できる任意の型を表します。
type VideoSource interface {
	GetVideoIDs() []string
}

// FeedAdapter は gofeed.Feed を VideoSource に適合させるためのアダプターです。
type FeedAdapter struct {
	*gofeed.Feed
}

// NewFeedAdapter は gofeed.Feed から新しいアダプターを作成します。
func NewFeedAdapter(feed *gofeed.Feed) *FeedAdapter {
	return &FeedAdapter{Feed: feed}
}

// GetVideoIDs は yt:videoId 拡張要素を優先し、無い場合はリンクから動画IDを取り出します。
// 重複と、動画IDを特定できないアイテムは除外します。
func (a *FeedAdapter) GetVideoIDs() []string {
	if a.Feed == nil || len(a.Items) == 0 {
		return []string{}
	}

	ids := make([]string, 0, len(a.Items))
	seen := make(map[string]struct{}, len(a.Items))
	for _, item := range a.Items {
		id := itemVideoID(item)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func itemVideoID(item *gofeed.Item) string {
	if item == nil {
		return ""
	}
	if exts, ok := item.Extensions["yt"]["videoId"]; ok && len(exts) > 0 {
		if id, err := youtube.ParseVideoID(exts[0].Value); err == nil {
			return id
		}
	}
	if item.Link != "" {
		if id, err := youtube.ParseVideoID(item.Link); err == nil {
			return id
		}
	}
	return ""
}

// GetAllVideoIDs は VideoSource から動画IDを抽出する汎用関数です。
func GetAllVideoIDs(source VideoSource) []string {
	if source == nil {
		return []string{}
	}
	return source.GetVideoIDs()
}
