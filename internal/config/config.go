package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload" // load envs
)

const (
	baseURLVar       = "YT_COMMENTS_BASE_URL"
	listenAddrVar    = "YT_COMMENTS_LISTEN_ADDR"
	corsOriginsVar   = "YT_COMMENTS_CORS_ORIGINS"
	channelIDsVar    = "YT_COMMENTS_CHANNEL_IDS"
	sessionTTLVar    = "YT_COMMENTS_SESSION_TTL_MINUTES"
	scrapeIntervalMs = "YT_COMMENTS_SCRAPE_INTERVAL_MS"

	defaultBaseURL    = "https://www.youtube.com"
	defaultListenAddr = ":8080"
)

// GetBaseURL は接続先のオリジンを返します。未設定の場合は本番のオリジンです。
func GetBaseURL() (s string) {
	s = os.Getenv(baseURLVar)
	if s == "" {
		s = defaultBaseURL
	}
	return
}

func GetListenAddr() (s string) {
	s = os.Getenv(listenAddrVar)
	if s == "" {
		s = defaultListenAddr
	}
	return
}

// GetCORSOrigins はAPIサーバーが許可するオリジンを返します。未設定の場合は全オリジンを許可します。
func GetCORSOrigins() []string {
	origins := getListVar(corsOriginsVar)
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

func GetChannelIDs() []string {
	return getListVar(channelIDsVar)
}

func GetSessionTTL() time.Duration {
	msg := "session ttl not properly configured. using default value"
	return time.Duration(getIntVar(sessionTTLVar, msg, 30)) * time.Minute
}

func GetScrapeInterval() time.Duration {
	msg := "scrape interval not properly configured. using default value"
	return time.Duration(getIntVar(scrapeIntervalMs, msg, 1000)) * time.Millisecond
}

func getListVar(name string) []string {
	eValue := os.Getenv(name)
	if eValue == "" {
		return []string{}
	}
	var out []string
	for _, v := range strings.Split(eValue, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func getIntVar(name, msg string, defaultValue int) int {
	eValue := os.Getenv(name)
	if eValue == "" {
		return defaultValue
	}
	iValue, err := strconv.Atoi(eValue)
	if err != nil || iValue <= 0 {
		log.Println(msg)
		return defaultValue
	}
	return iValue
}
