package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shouni/go-yt-comments/pkg/scrapeerr"
	"github.com/shouni/go-yt-comments/pkg/types"
	"github.com/shouni/go-yt-comments/pkg/youtube"
)

const (
	serviceName     = "yt-comments"
	shutdownTimeout = 10 * time.Second
)

// PageRunner は1ページ分のコメントを取得します。*comments.Fetcher が満たします。
type PageRunner interface {
	Run(ctx context.Context, videoID, pageToken string) (*types.CommentsPage, error)
}

// Server はコメント取得をHTTP APIとして公開します。
type Server struct {
	runner PageRunner
	engine *gin.Engine
}

// New はルーティングを設定済みの Server を生成します。
// origins に "*" が含まれる場合は全オリジンを許可します。
func New(runner PageRunner, origins []string) *Server {
	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowMethods = []string{"GET", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type"}
	if allowAll(origins) {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = origins
	}
	r.Use(cors.New(config))

	s := &Server{runner: runner, engine: r}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.GET("/comments", s.getComments)
	}
	return s
}

// Handler はテストや独自の http.Server から利用するためのハンドラを返します。
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run は addr で待ち受け、ctx がキャンセルされるとグレースフルに停止します。
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("APIサーバーを起動します", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		slog.Info("APIサーバーを停止します")
		return srv.Shutdown(shutdownCtx)
	}
}

// getComments は GET /api/comments?videoId=&pageToken= を処理します。
func (s *Server) getComments(c *gin.Context) {
	raw := c.Query("videoId")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "videoId is required"})
		return
	}

	videoID, err := youtube.ParseVideoID(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid videoId", "details": err.Error()})
		return
	}

	page, err := s.runner.Run(c.Request.Context(), videoID, c.Query("pageToken"))
	if err != nil {
		status, body := errorResponse(err)
		if status >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "コメントの取得に失敗しました", "videoId", videoID, "error", err)
		}
		c.JSON(status, body)
		return
	}

	c.JSON(http.StatusOK, page)
}

// errorResponse は型付きエラーをHTTPステータスとレスポンスボディに変換します。
func errorResponse(err error) (int, gin.H) {
	var nc *scrapeerr.NoCommentsError
	if errors.As(err, &nc) {
		return http.StatusNotFound, gin.H{
			"error":     "no comments",
			"videoId":   nc.VideoID,
			"component": nc.Component,
			"operation": nc.Operation,
		}
	}

	var se *scrapeerr.Error
	if errors.As(err, &se) {
		return http.StatusBadGateway, gin.H{
			"error":     se.Message,
			"videoId":   se.VideoID,
			"component": se.Component,
			"operation": se.Operation,
		}
	}

	return http.StatusInternalServerError, gin.H{"error": err.Error()}
}

func allowAll(origins []string) bool {
	if len(origins) == 0 {
		return true
	}
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
