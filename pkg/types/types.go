package types

// Comment は、1件のコメント（またはリプライ）を表します。
// リプライもトップレベルのコメントと同じ構造ですが、さらにリプライを持つことはありません。
type Comment struct {
	ID          string `json:"id"`
	Author      string `json:"author"`
	AuthorLink  string `json:"authorLink"`
	AuthorThumb string `json:"authorThumb"`
	Text        string `json:"text"`
	Likes       int    `json:"likes"`
	Time        string `json:"time"`      // 表示用の相対時刻 (例: "10 hours ago")
	Timestamp   int64  `json:"timestamp"` // エポックミリ秒
	HasReplies  bool   `json:"hasReplies"`

	// 以下はリプライが存在する場合のみ設定されます。
	NumReplies   int       `json:"numReplies,omitempty"`
	RepliesToken string    `json:"repliesToken,omitempty"`
	Replies      []Comment `json:"replies,omitempty"`
}

// CommentsPage は、1ページ分のコメントと次ページのカーソルを保持します。
// NextPageToken が空文字列の場合、次のページは存在しません（JSONでは省略されます）。
type CommentsPage struct {
	Comments      []Comment `json:"comments"`
	NextPageToken string    `json:"nextPageToken,omitempty"`
}

// VideoResult は、複数動画の並列取得における1動画分の結果、またはエラーを保持します。
type VideoResult struct {
	VideoID string        // 処理対象の動画ID
	Page    *CommentsPage // 取得したコメントページ
	Error   error         // 処理中に発生したエラー
}
