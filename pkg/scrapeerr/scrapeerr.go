// Package scrapeerr は、コメント取得パイプラインが返す型付きエラーを定義します。
package scrapeerr

import (
	"errors"
	"fmt"
)

// Error は、マークアップ構造の変化やフィールド欠落など、ページ取得を中断させる失敗を表します。
type Error struct {
	VideoID   string `json:"videoId"`
	Component string `json:"component"`
	Operation string `json:"operation"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("scraper error [%s/%s] video=%s: %s", e.Component, e.Operation, e.VideoID, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NoCommentsError は、動画にコメントが1件も存在しないことを表します。
// 想定内の終端状態であり、メッセージは持ちません。
type NoCommentsError struct {
	VideoID   string `json:"videoId"`
	Component string `json:"component"`
	Operation string `json:"operation"`
}

func (e *NoCommentsError) Error() string {
	return fmt.Sprintf("video %s has no comments [%s/%s]", e.VideoID, e.Component, e.Operation)
}

// New は、メッセージのみを持つ Error を生成します。
func New(videoID, component, operation, message string) *Error {
	return &Error{
		VideoID:   videoID,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// NoComments は NoCommentsError を生成します。
func NoComments(videoID, component, operation string) *NoCommentsError {
	return &NoCommentsError{
		VideoID:   videoID,
		Component: component,
		Operation: operation,
	}
}

// IsTyped は、err のチェーンに Error または NoCommentsError が含まれているかを判定します。
func IsTyped(err error) bool {
	if err == nil {
		return false
	}
	var se *Error
	var nc *NoCommentsError
	return errors.As(err, &se) || errors.As(err, &nc)
}

// IsNoComments は、err がコメント0件を表すかを判定します。
func IsNoComments(err error) bool {
	var nc *NoCommentsError
	return errors.As(err, &nc)
}

// Wrap は、型付きでないエラーを Error に包みます。型付きのエラーはそのまま返します。
func Wrap(err error, videoID, component, operation string) error {
	if err == nil || IsTyped(err) {
		return err
	}
	return &Error{
		VideoID:   videoID,
		Component: component,
		Operation: operation,
		Message:   err.Error(),
		Err:       err,
	}
}
