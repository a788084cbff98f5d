package comments

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/shouni/go-yt-comments/internal/testutil"
	"github.com/shouni/go-yt-comments/pkg/types"
	"github.com/shouni/go-yt-comments/pkg/youtube"
)

const testVideoID = "dQw4w9WgXcQ"

// mockAPI は API インターフェースのモックです。
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) WatchFragment(ctx context.Context, videoID string) (*youtube.WatchFragment, error) {
	args := m.Called(ctx, videoID)
	wf, _ := args.Get(0).(*youtube.WatchFragment)
	return wf, args.Error(1)
}

func (m *mockAPI) CommentPage(ctx context.Context, videoID, pageToken string) (*youtube.CommentPage, error) {
	args := m.Called(ctx, videoID, pageToken)
	page, _ := args.Get(0).(*youtube.CommentPage)
	return page, args.Error(1)
}

func (m *mockAPI) CommentReplies(ctx context.Context, videoID, repliesToken string) (*youtube.RepliesPage, error) {
	args := m.Called(ctx, videoID, repliesToken)
	page, _ := args.Get(0).(*youtube.RepliesPage)
	return page, args.Error(1)
}

// repliesFunc は関数を RepliesFetcher として扱うためのアダプタです。
type repliesFunc func(ctx context.Context, videoID string, c types.Comment) ([]types.Comment, error)

func (f repliesFunc) FetchReplies(ctx context.Context, videoID string, c types.Comment) ([]types.Comment, error) {
	return f(ctx, videoID, c)
}

func sample(id string) testutil.CommentHTML {
	return testutil.CommentHTML{
		ID:          id,
		Author:      id + "_author",
		AuthorLink:  "/channel/" + id,
		AuthorThumb: "https://yt3.example.com/" + id + ".jpg",
		Text:        id + " text",
		Likes:       3,
		Time:        "2 days ago",
	}
}

func discussion(count, token string) *youtube.WatchFragment {
	return &youtube.WatchFragment{Body: map[string]string{
		"watch-discussion": testutil.WatchDiscussion(count, token, true),
	}}
}

func repliesPage(html string) *youtube.RepliesPage {
	return &youtube.RepliesPage{ContentHTML: &html}
}

func ids(cs []types.Comment) []string {
	out := make([]string, 0, len(cs))
	for _, c := range cs {
		out = append(out, c.ID)
	}
	return out
}
