package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/shouni/go-yt-comments/pkg/metrics"
)

// ErrSessionTokenNotFound は、視聴ページからセッショントークンを取り出せなかったことを表します。
var ErrSessionTokenNotFound = errors.New("Cannot find session token")

var sessionTokenPattern = regexp.MustCompile(`'XSRF_TOKEN'\s*\n*:\s*\n*"(.*)"`)

// PageFetchFunc は動画IDの視聴ページ本文を返す関数です。
type PageFetchFunc func(ctx context.Context, videoID string) (string, error)

type sessionEntry struct {
	value   string
	expires time.Time
}

// SessionStore は動画IDごとのセッショントークンを有効期限付きでキャッシュします。
// 同じ動画IDへの同時問い合わせは1回の取得にまとめられます。
type SessionStore struct {
	fetch PageFetchFunc
	ttl   time.Duration
	now   func() time.Time
	cache *cache.Cache
	group singleflight.Group
}

// NewSessionStore は SessionStore を生成します。ttl が0以下の場合は DefaultSessionTTL を使用します。
func NewSessionStore(fetch PageFetchFunc, ttl time.Duration, now func() time.Time) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		fetch: fetch,
		ttl:   ttl,
		now:   now,
		// 期限判定は注入された時計だけで行うため、go-cache 側では期限を設定しない
		cache: cache.New(cache.NoExpiration, 0),
	}
}

// Token は動画IDに対応するセッショントークンを返します。
// キャッシュが有効期限内であればそれを返し、そうでなければ視聴ページを1回取得します。
func (s *SessionStore) Token(ctx context.Context, videoID string) (string, error) {
	if token, ok := s.lookup(videoID); ok {
		metrics.SessionTokenLookups.WithLabelValues(metrics.LookupHit).Inc()
		return token, nil
	}

	ch := s.group.DoChan(videoID, func() (interface{}, error) {
		// 待機中に別の呼び出しが取得を終えている場合がある
		if token, ok := s.lookup(videoID); ok {
			return token, nil
		}
		metrics.SessionTokenLookups.WithLabelValues(metrics.LookupMiss).Inc()

		// 取得は合流した全呼び出しで共有するため、最初の呼び出し元のキャンセルを引き継がない。
		// 所要時間はトランスポートのタイムアウトで制限される。
		body, err := s.fetch(context.WithoutCancel(ctx), videoID)
		if err != nil {
			return "", fmt.Errorf("視聴ページの取得に失敗しました (video: %s): %w", videoID, err)
		}

		m := sessionTokenPattern.FindStringSubmatch(body)
		if len(m) != 2 {
			return "", ErrSessionTokenNotFound
		}

		s.cache.Set(videoID, sessionEntry{value: m[1], expires: s.now().Add(s.ttl)}, cache.NoExpiration)
		return m[1], nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate は動画IDのキャッシュを破棄します。
func (s *SessionStore) Invalidate(videoID string) {
	s.cache.Delete(videoID)
}

func (s *SessionStore) lookup(videoID string) (string, bool) {
	v, found := s.cache.Get(videoID)
	if !found {
		return "", false
	}
	entry, ok := v.(sessionEntry)
	if !ok || !entry.expires.After(s.now()) {
		s.cache.Delete(videoID)
		return "", false
	}
	return entry.value, true
}
