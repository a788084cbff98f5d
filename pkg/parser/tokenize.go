package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Tokenize は1ページ分のコメントHTMLを、表示順のスレッド断片に分割します。
// 空のページは0件として扱い、スレッド要素を1つも含まないページは認識できない形式としてエラーを返します。
func Tokenize(html string) ([]string, error) {
	if strings.TrimSpace(html) == "" {
		return []string{}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("コメントページのHTML解析に失敗しました: %w", err)
	}

	threads := doc.Find(threadSelector)
	if threads.Length() == 0 {
		return nil, fmt.Errorf("コメントページの形式を認識できません: スレッド要素 (%s) がありません", threadSelector)
	}

	fragments := make([]string, 0, threads.Length())
	var outerErr error
	threads.EachWithBreak(func(i int, s *goquery.Selection) bool {
		fragment, err := goquery.OuterHtml(s)
		if err != nil {
			outerErr = fmt.Errorf("スレッド %d のHTML出力に失敗しました: %w", i, err)
			return false
		}
		fragments = append(fragments, fragment)
		return true
	})
	if outerErr != nil {
		return nil, outerErr
	}
	return fragments, nil
}
