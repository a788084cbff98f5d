package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// YouTube API request metrics
	YouTubeRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt_comments_upstream_requests_total",
			Help: "Total number of requests sent to the video site",
		},
		[]string{"endpoint", "status"},
	)

	YouTubeRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "yt_comments_upstream_request_duration_seconds",
			Help:    "Upstream request duration in seconds, retries included",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	SessionTokenLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt_comments_session_token_lookups_total",
			Help: "Session token lookups by cache result",
		},
		[]string{"result"},
	)

	// Pipeline metrics
	CommentPagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt_comments_pages_total",
			Help: "Total number of comment page requests by outcome",
		},
		[]string{"status"},
	)

	CommentsParsedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yt_comments_parsed_total",
			Help: "Total number of top-level comments parsed",
		},
	)

	ReplyEnrichmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "yt_comments_reply_enrichments_total",
			Help: "Reply enrichment attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReplyPagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "yt_comments_reply_pages_total",
			Help: "Total number of reply pages fetched",
		},
	)
)

// Outcome labels
const (
	StatusOK          = "ok"
	StatusError       = "error"
	StatusNoComments  = "no_comments"
	OutcomeEnriched   = "enriched"
	OutcomeEmpty      = "empty"
	OutcomeFailed     = "failed"
	LookupHit         = "hit"
	LookupMiss        = "miss"
	EndpointWatchPage = "watch"
	EndpointFragment  = "watch_fragments"
	EndpointComments  = "comments"
	EndpointReplies   = "replies"
	EndpointFeed      = "feed"
)
