package parser

import (
	"strings"

	dps "github.com/markusmobius/go-dateparser"
)

// timestamp は "10 hours ago" のような相対表記を、Parser の時計を基準にエポックミリ秒へ変換します。
// 解析できない場合は現在時刻を返します。
func (p *Parser) timestamp(display string) int64 {
	now := p.now()

	s := strings.TrimSpace(editedPattern.ReplaceAllString(display, ""))
	if s == "" {
		return now.UnixMilli()
	}

	dt, err := dps.Parse(&dps.Configuration{CurrentTime: now}, s)
	if err != nil || dt.Time.IsZero() {
		return now.UnixMilli()
	}
	return dt.Time.UnixMilli()
}
