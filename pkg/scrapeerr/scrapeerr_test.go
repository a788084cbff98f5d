package scrapeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	t.Run("untyped error is wrapped", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, "vid", "fetch-first-page-token", "fetch-first-page-token")

		var se *Error
		require.True(t, errors.As(err, &se))
		assert.Equal(t, "vid", se.VideoID)
		assert.Equal(t, "fetch-first-page-token", se.Component)
		assert.Equal(t, "connection reset", se.Message)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("typed error passes through unchanged", func(t *testing.T) {
		orig := New("vid", "fetch-replies", "fetch-replies", "boom")
		err := Wrap(orig, "other", "fetch-comments", "fetch-comments")
		assert.Same(t, orig, err)
	})

	t.Run("no comments error passes through even when wrapped with fmt", func(t *testing.T) {
		orig := NoComments("vid", "fetch-first-page-token", "extractToken")
		wrapped := fmt.Errorf("context: %w", orig)
		err := Wrap(wrapped, "vid", "fetch-comments", "fetch-comments")
		assert.Equal(t, wrapped, err)
		assert.True(t, IsNoComments(err))
	})

	t.Run("nil stays nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "vid", "c", "o"))
	})
}

func TestIsTyped(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"scraper error", New("v", "c", "o", "m"), true},
		{"no comments", NoComments("v", "c", "o"), true},
		{"wrapped scraper error", fmt.Errorf("ctx: %w", New("v", "c", "o", "m")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTyped(tt.err))
		})
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		"scraper error [fetch-replies/fetch-replies] video=abc: missing token",
		New("abc", "fetch-replies", "fetch-replies", "missing token").Error())
	assert.Equal(t,
		"video abc has no comments [fetch-first-page-token/extractToken]",
		NoComments("abc", "fetch-first-page-token", "extractToken").Error())
}
