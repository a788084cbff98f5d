package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shouni/go-yt-comments/pkg/types"
)

// fakeRunner はカーソルごとに用意したページを返します。
type fakeRunner struct {
	pages map[string]*types.CommentsPage
	errs  map[string]error
	calls []string
}

func (f *fakeRunner) Run(_ context.Context, _ string, token string) (*types.CommentsPage, error) {
	f.calls = append(f.calls, token)
	if err, ok := f.errs[token]; ok {
		return nil, err
	}
	return f.pages[token], nil
}

func page(next string, ids ...string) *types.CommentsPage {
	p := &types.CommentsPage{NextPageToken: next}
	for _, id := range ids {
		p.Comments = append(p.Comments, types.Comment{ID: id})
	}
	return p
}

func commentIDs(p *types.CommentsPage) []string {
	var out []string
	for _, c := range p.Comments {
		out = append(out, c.ID)
	}
	return out
}

func TestFetchAllComments(t *testing.T) {
	ctx := context.Background()

	t.Run("follows cursors until the last page", func(t *testing.T) {
		r := &fakeRunner{pages: map[string]*types.CommentsPage{
			"":   page("p2", "a", "b"),
			"p2": page("p3", "c"),
			"p3": page("", "d"),
		}}

		all, err := FetchAllComments(ctx, r, "vid", Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, commentIDs(all))
		assert.Empty(t, all.NextPageToken)
		assert.Equal(t, []string{"", "p2", "p3"}, r.calls)
	})

	t.Run("stops at max pages and keeps the cursor", func(t *testing.T) {
		r := &fakeRunner{pages: map[string]*types.CommentsPage{
			"":   page("p2", "a"),
			"p2": page("p3", "b"),
		}}

		all, err := FetchAllComments(ctx, r, "vid", Options{MaxPages: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, commentIDs(all))
		assert.Equal(t, "p3", all.NextPageToken)
	})

	t.Run("starts from the given token", func(t *testing.T) {
		r := &fakeRunner{pages: map[string]*types.CommentsPage{
			"p2": page("", "b"),
		}}

		all, err := FetchAllComments(ctx, r, "vid", Options{StartToken: "p2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, commentIDs(all))
		assert.Equal(t, []string{"p2"}, r.calls)
	})

	t.Run("repeated cursor stops the loop", func(t *testing.T) {
		r := &fakeRunner{pages: map[string]*types.CommentsPage{
			"":   page("p2", "a"),
			"p2": page("p2", "b"),
		}}

		all, err := FetchAllComments(ctx, r, "vid", Options{})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, commentIDs(all))
		assert.Len(t, r.calls, 2)
	})

	t.Run("first page error is returned as is", func(t *testing.T) {
		boom := errors.New("boom")
		r := &fakeRunner{errs: map[string]error{"": boom}}

		all, err := FetchAllComments(ctx, r, "vid", Options{})
		assert.Nil(t, all)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("later page error keeps partial results", func(t *testing.T) {
		boom := errors.New("boom")
		r := &fakeRunner{
			pages: map[string]*types.CommentsPage{"": page("p2", "a")},
			errs:  map[string]error{"p2": boom},
		}

		all, err := FetchAllComments(ctx, r, "vid", Options{})
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		require.NotNil(t, all)
		assert.Equal(t, []string{"a"}, commentIDs(all))
		assert.Equal(t, "p2", all.NextPageToken)
	})
}
