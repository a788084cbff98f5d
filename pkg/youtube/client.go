package youtube

import (
	"fmt"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"

	"github.com/shouni/go-yt-comments/pkg/retry"
)

const (
	// DefaultBaseURL は動画サイトのオリジンです。
	DefaultBaseURL = "https://www.youtube.com"

	// DefaultHTTPTimeout は1リクエストあたりのタイムアウトです。
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultSessionTTL はセッショントークンのキャッシュ有効期間です。
	DefaultSessionTTL = 30 * time.Minute

	// UserAgent はサイトからのブロックを避けるためのUser-Agentです。
	UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36"
)

// Client は、コメント取得に使う内部AJAXエンドポイントへのアクセスをまとめます。
// セッショントークンは動画IDごとにキャッシュされ、Cookie は Client 内で共有されます。
type Client struct {
	http        *resty.Client
	retryConfig retry.Config
	sessions    *SessionStore
}

type clientConfig struct {
	baseURL    string
	timeout    time.Duration
	userAgent  string
	maxRetries *uint64
	sessionTTL time.Duration
	now        func() time.Time
	httpClient *resty.Client
}

// ClientOption はClientの設定を行うための関数型です。
type ClientOption func(*clientConfig)

// WithBaseURL は接続先のオリジンを変更します。テストでは httptest.Server のURLを渡します。
func WithBaseURL(baseURL string) ClientOption {
	return func(c *clientConfig) { c.baseURL = baseURL }
}

// WithTimeout はHTTPリクエストのタイムアウトを設定します。
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = timeout }
}

// WithMaxRetries は最大リトライ回数を設定します。
func WithMaxRetries(max uint64) ClientOption {
	return func(c *clientConfig) { c.maxRetries = &max }
}

// WithUserAgent はUser-Agentを変更します。
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) { c.userAgent = ua }
}

// WithSessionTTL はセッショントークンのキャッシュ有効期間を設定します。
func WithSessionTTL(ttl time.Duration) ClientOption {
	return func(c *clientConfig) { c.sessionTTL = ttl }
}

// WithClock はセッションキャッシュの有効期限判定に使う時計を設定します。
func WithClock(now func() time.Time) ClientOption {
	return func(c *clientConfig) { c.now = now }
}

// WithRestyClient は設定済みの resty クライアントを使用します。
func WithRestyClient(rc *resty.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = rc }
}

// New は新しいClientを初期化します。
func New(options ...ClientOption) (*Client, error) {
	cfg := clientConfig{
		baseURL:    DefaultBaseURL,
		timeout:    DefaultHTTPTimeout,
		userAgent:  UserAgent,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range options {
		opt(&cfg)
	}
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultHTTPTimeout
	}

	rc := cfg.httpClient
	if rc == nil {
		rc = resty.New()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar の初期化に失敗しました: %w", err)
	}

	rc.SetBaseURL(cfg.baseURL).
		SetTimeout(cfg.timeout).
		SetCookieJar(jar).
		SetHeader("User-Agent", cfg.userAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.8").
		SetHeader("X-YouTube-Client-Name", "1").
		SetHeader("X-YouTube-Client-Version", "1.20170803")

	retryCfg := retry.DefaultConfig()
	if cfg.maxRetries != nil {
		retryCfg.MaxRetries = *cfg.maxRetries
	}

	c := &Client{
		http:        rc,
		retryConfig: retryCfg,
	}
	c.sessions = NewSessionStore(c.watchPage, cfg.sessionTTL, cfg.now)
	return c, nil
}

// Sessions はこのClientが所有するセッショントークンストアを返します。
func (c *Client) Sessions() *SessionStore {
	return c.sessions
}
