package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-yt-comments/internal/testutil"
)

const testVideoID = "dQw4w9WgXcQ"

const watchPageHTML = `<html><script>
ytcfg.set({
  'XSRF_TOKEN':
    "QUFFLUhqbXNession%3D",
  'ID_TOKEN': null
});
</script></html>`

// fakeSite は動画サイトの内部エンドポイントを模した httptest.Server のハンドラです。
type fakeSite struct {
	watchCalls    atomic.Int32
	fragmentCalls atomic.Int32
	commentCalls  atomic.Int32
	replyCalls    atomic.Int32

	mu           sync.Mutex
	lastForm     map[string]string
	commentsJSON string
	repliesJSON  string
	commentsCode int
}

func (f *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	f.mu.Lock()
	f.lastForm = map[string]string{
		"session_token": r.PostForm.Get("session_token"),
		"page_token":    r.PostForm.Get("page_token"),
	}
	f.mu.Unlock()

	switch {
	case r.URL.Path == "/watch":
		f.watchCalls.Add(1)
		_, _ = w.Write([]byte(watchPageHTML))
	case r.URL.Path == "/watch_fragments_ajax":
		f.fragmentCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"body": map[string]string{"watch-discussion": testutil.WatchDiscussion("22", "tok", true)},
		})
	case r.URL.Path == "/comment_service_ajax" && r.URL.Query().Get("action_load_comments") == "1":
		f.commentCalls.Add(1)
		if f.commentsCode != 0 {
			w.WriteHeader(f.commentsCode)
			_, _ = w.Write([]byte("nope"))
			return
		}
		_, _ = w.Write([]byte(f.commentsJSON))
	case r.URL.Path == "/comment_service_ajax" && r.URL.Query().Get("action_load_replies") == "1":
		f.replyCalls.Add(1)
		_, _ = w.Write([]byte(f.repliesJSON))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSite) form(key string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm[key]
}

func newTestClient(t *testing.T, site *fakeSite, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)

	opts = append([]ClientOption{WithBaseURL(srv.URL), WithMaxRetries(0)}, opts...)
	c, err := New(opts...)
	require.NoError(t, err)
	return c
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func TestWatchFragment(t *testing.T) {
	site := &fakeSite{}
	c := newTestClient(t, site)

	wf, err := c.WatchFragment(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Contains(t, wf.Body["watch-discussion"], "comment-section-renderer")
	assert.Equal(t, "QUFFLUhqbXNession%3D", site.form("session_token"))
}

func TestCommentPage(t *testing.T) {
	t.Run("with next page widget", func(t *testing.T) {
		site := &fakeSite{commentsJSON: mustJSON(t, map[string]string{
			"content_html":          "<div>page</div>",
			"load_more_widget_html": testutil.LoadMoreButton("next%3Dtoken", "Show more"),
		})}
		c := newTestClient(t, site)

		page, err := c.CommentPage(context.Background(), testVideoID, "first")
		require.NoError(t, err)
		assert.Equal(t, "<div>page</div>", page.CommentHTML)
		assert.Equal(t, "next%3Dtoken", page.NextPageToken)
		assert.Equal(t, "first", site.form("page_token"))
	})

	t.Run("last page has no next token", func(t *testing.T) {
		site := &fakeSite{commentsJSON: `{"content_html":"<div>last</div>","load_more_widget_html":""}`}
		c := newTestClient(t, site)

		page, err := c.CommentPage(context.Background(), testVideoID, "tok")
		require.NoError(t, err)
		assert.Empty(t, page.NextPageToken)
	})

	t.Run("missing content_html", func(t *testing.T) {
		site := &fakeSite{commentsJSON: `{"nothing":"here"}`}
		c := newTestClient(t, site)

		_, err := c.CommentPage(context.Background(), testVideoID, "tok")
		assert.Error(t, err)
	})

	t.Run("4xx is not retried", func(t *testing.T) {
		site := &fakeSite{commentsCode: http.StatusForbidden}
		c := newTestClient(t, site, WithMaxRetries(3))

		_, err := c.CommentPage(context.Background(), testVideoID, "tok")
		require.Error(t, err)
		assert.True(t, IsNonRetryableError(err))
		assert.Equal(t, int32(1), site.commentCalls.Load())
	})

	t.Run("5xx is retried", func(t *testing.T) {
		site := &fakeSite{commentsCode: http.StatusBadGateway}
		c := newTestClient(t, site, WithMaxRetries(2))
		c.retryConfig.InitialInterval = time.Millisecond
		c.retryConfig.MaxInterval = 2 * time.Millisecond

		_, err := c.CommentPage(context.Background(), testVideoID, "tok")
		require.Error(t, err)
		assert.False(t, IsNonRetryableError(err))
		assert.Equal(t, int32(3), site.commentCalls.Load())
	})
}

func TestCommentReplies(t *testing.T) {
	t.Run("content present", func(t *testing.T) {
		site := &fakeSite{repliesJSON: `{"content_html":"<div>r</div>"}`}
		c := newTestClient(t, site)

		page, err := c.CommentReplies(context.Background(), testVideoID, "rtok")
		require.NoError(t, err)
		require.NotNil(t, page.ContentHTML)
		assert.Equal(t, "<div>r</div>", *page.ContentHTML)
		assert.Equal(t, "rtok", site.form("page_token"))
	})

	t.Run("content absent", func(t *testing.T) {
		site := &fakeSite{repliesJSON: `{"nonsense":"yep"}`}
		c := newTestClient(t, site)

		page, err := c.CommentReplies(context.Background(), testVideoID, "rtok")
		require.NoError(t, err)
		assert.Nil(t, page.ContentHTML)
	})
}

func TestSessionStore(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	var fetches atomic.Int32
	store := NewSessionStore(func(ctx context.Context, videoID string) (string, error) {
		fetches.Add(1)
		return watchPageHTML, nil
	}, 30*time.Minute, clock)

	ctx := context.Background()

	token, err := store.Token(ctx, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, "QUFFLUhqbXNession%3D", token)

	// 有効期限内はキャッシュを返す
	advance(29 * time.Minute)
	_, err = store.Token(ctx, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load())

	// 期限切れ後は再取得する
	advance(2 * time.Minute)
	_, err = store.Token(ctx, testVideoID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), fetches.Load())

	// 別の動画IDは別エントリ
	_, err = store.Token(ctx, "otherVideo1")
	require.NoError(t, err)
	assert.Equal(t, int32(3), fetches.Load())
}

func TestSessionStoreCoalescesConcurrentLookups(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	store := NewSessionStore(func(ctx context.Context, videoID string) (string, error) {
		fetches.Add(1)
		<-release
		return watchPageHTML, nil
	}, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := store.Token(context.Background(), testVideoID)
			assert.NoError(t, err)
			assert.Equal(t, "QUFFLUhqbXNession%3D", token)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	// 最悪でも競合は2回までに抑えられる
	assert.LessOrEqual(t, fetches.Load(), int32(2))
}

func TestSessionStoreCancelledCallerDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var fetchCtxErr atomic.Value

	store := NewSessionStore(func(ctx context.Context, videoID string) (string, error) {
		close(started)
		<-release
		fetchCtxErr.Store(fmt.Sprint(ctx.Err()))
		return watchPageHTML, nil
	}, time.Minute, nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	err1 := make(chan error, 1)
	go func() {
		_, err := store.Token(ctx1, testVideoID)
		err1 <- err
	}()
	<-started

	type result struct {
		token string
		err   error
	}
	res2 := make(chan result, 1)
	go func() {
		token, err := store.Token(context.Background(), testVideoID)
		res2 <- result{token, err}
	}()
	time.Sleep(20 * time.Millisecond)

	// 最初の呼び出し元だけがキャンセルで戻る
	cancel1()
	assert.ErrorIs(t, <-err1, context.Canceled)

	close(release)
	r := <-res2
	require.NoError(t, r.err)
	assert.Equal(t, "QUFFLUhqbXNession%3D", r.token)
	assert.Equal(t, "<nil>", fetchCtxErr.Load())
}

func TestSessionStoreDropsExpiredEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewSessionStore(func(ctx context.Context, videoID string) (string, error) {
		return watchPageHTML, nil
	}, time.Minute, func() time.Time { return now })

	_, err := store.Token(context.Background(), testVideoID)
	require.NoError(t, err)
	assert.Equal(t, 1, store.cache.ItemCount())

	// 期限は注入された時計だけで判定され、期限切れのエントリは参照時に破棄される
	now = now.Add(2 * time.Minute)
	_, ok := store.lookup(testVideoID)
	assert.False(t, ok)
	assert.Equal(t, 0, store.cache.ItemCount())
}

func TestSessionStoreTokenNotFound(t *testing.T) {
	store := NewSessionStore(func(ctx context.Context, videoID string) (string, error) {
		return "<html>no token</html>", nil
	}, time.Minute, nil)

	_, err := store.Token(context.Background(), testVideoID)
	assert.ErrorIs(t, err, ErrSessionTokenNotFound)
}

func TestClientReusesSessionToken(t *testing.T) {
	site := &fakeSite{repliesJSON: `{"content_html":""}`}
	c := newTestClient(t, site)

	for i := 0; i < 3; i++ {
		_, err := c.CommentReplies(context.Background(), testVideoID, "rtok")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), site.watchCalls.Load())
	assert.Equal(t, int32(3), site.replyCalls.Load())
}

func TestNonRetryableHTTPError_Error(t *testing.T) {
	tests := []struct {
		name     string
		body     []byte
		expected string
	}{
		{"non-empty body", []byte("error body"), "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディ: error body"},
		{"empty body", nil, "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディなし"},
		{"truncated body", []byte(strings.Repeat("a", 1025)), "HTTPクライアントエラー (非リトライ対象): ステータスコード 400, ボディ: " + strings.Repeat("a", 1024) + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &NonRetryableHTTPError{StatusCode: 400, Body: tt.body}
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestParseVideoID(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: " dQw4w9WgXcQ ", want: "dQw4w9WgXcQ"},
		{in: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&t=42", want: "dQw4w9WgXcQ"},
		{in: "www.youtube.com/watch?v=dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://youtu.be/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://www.youtube.com/shorts/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "https://www.youtube.com/embed/dQw4w9WgXcQ", want: "dQw4w9WgXcQ"},
		{in: "ftp://youtu.be/dQw4w9WgXcQ", wantErr: true},
		{in: "https://example.com/about", wantErr: true},
		{in: "short", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseVideoID(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRejectedSessionTokenIsRefetched(t *testing.T) {
	site := &fakeSite{commentsCode: http.StatusForbidden}
	c := newTestClient(t, site)

	for i := 0; i < 2; i++ {
		_, err := c.CommentPage(context.Background(), testVideoID, "tok")
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), site.watchCalls.Load())
}
