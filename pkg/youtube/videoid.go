package youtube

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// ParseVideoID は動画IDまたは動画URLから動画IDを取り出します。
// 対応形式: 11文字のID, watch?v=ID, youtu.be/ID, /shorts/ID, /embed/ID
func ParseVideoID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if videoIDPattern.MatchString(s) {
		return s, nil
	}

	// スキームがない場合は https:// を補完してからパースする
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("URLのパースエラー: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("無効なURLスキームです。httpまたはhttpsを指定してください: %s", raw)
	}

	var candidate string
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch {
	case host == "youtu.be":
		candidate = segments[0]
	case u.Query().Get("v") != "":
		candidate = u.Query().Get("v")
	case len(segments) == 2 && (segments[0] == "shorts" || segments[0] == "embed"):
		candidate = segments[1]
	}

	if !videoIDPattern.MatchString(candidate) {
		return "", fmt.Errorf("動画IDを特定できません: %s", raw)
	}
	return candidate, nil
}
