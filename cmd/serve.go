package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shouni/go-yt-comments/internal/config"
	"github.com/shouni/go-yt-comments/pkg/server"
)

var listenAddr string // --addr 待ち受けアドレス

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "コメント取得をHTTP APIとして公開します",
	Long: `GET /api/comments?videoId=<id>&pageToken=<token> でコメントを1ページずつ返すAPIサーバーを起動します。
/health と /metrics (Prometheus) も公開します。`,
	Args: cobra.NoArgs,

	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher, err := newFetcher()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return server.New(fetcher, config.GetCORSOrigins()).Run(ctx, listenAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", config.GetListenAddr(), "待ち受けアドレス")
}
