package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

func newBoardFixture(t *testing.T) (*fixture, BoardService, *domain.BoardPost) {
	f := newFixture(t)
	post, err := f.repos.Board.CreatePost(context.Background(), &domain.BoardPost{
		Title: "입금 문의", Content: "확인 부탁드립니다", AuthorID: "p1", SchoolID: strp("sc1"), ParentOnly: true,
	})
	require.NoError(t, err)
	return f, NewBoardService(f.repos, f.clock, nopLogger()), post
}

func TestBoard_ListPostsScope(t *testing.T) {
	f, svc, _ := newBoardFixture(t)
	ctx := context.Background()
	_, err := f.repos.Board.CreatePost(ctx, &domain.BoardPost{Title: "미납 안내", Content: "x", AuthorID: "admin1", SchoolID: strp("sc2"), TargetParentID: strp("p2"), ParentOnly: true})
	require.NoError(t, err)

	all, err := svc.ListPosts(ctx, admin, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bySchool, err := svc.ListPosts(ctx, admin, "sc2")
	require.NoError(t, err)
	require.Len(t, bySchool, 1)

	mine, err := svc.ListPosts(ctx, parent2, "")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "미납 안내", mine[0].Title)
}

func TestBoard_GetPostAccessAndViews(t *testing.T) {
	_, svc, post := newBoardFixture(t)
	ctx := context.Background()

	var pe apperr.PermissionError
	_, err := svc.GetPost(ctx, parent2, post.PostID)
	assert.True(t, errors.As(err, &pe))

	got, err := svc.GetPost(ctx, parent1, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ViewCount)
	assert.Empty(t, got.Comments)

	got, err = svc.GetPost(ctx, admin, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.ViewCount)

	_, err = svc.GetPost(ctx, admin, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestBoard_CommentThreading(t *testing.T) {
	f, svc, post := newBoardFixture(t)
	ctx := context.Background()

	top, err := svc.AddComment(ctx, admin, AddCommentRequest{PostID: post.PostID, Content: "확인했습니다"})
	require.NoError(t, err)
	reply, err := svc.AddComment(ctx, parent1, AddCommentRequest{PostID: post.PostID, Content: "감사합니다", ParentCommentID: &top.CommentID})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, admin, AddCommentRequest{PostID: post.PostID, Content: "x", ParentCommentID: &reply.CommentID})
	assert.True(t, errors.Is(err, apperr.ErrNestedReply))

	_, err = f.mem.Insert(ctx, store.BoardComments, []store.Row{{
		"id": "orphan", "post_id": post.PostID, "author_id": "p1", "content": "?",
		"parent_comment_id": "missing", "created_at": testNow, "updated_at": testNow,
	}}, store.InsertOptions{})
	require.NoError(t, err)

	got, err := svc.GetPost(ctx, parent1, post.PostID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CommentCount)
	require.NotNil(t, got.LastCommentAt)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, top.CommentID, got.Comments[0].CommentID)
	require.Len(t, got.Comments[0].Replies, 1)
	assert.Equal(t, reply.CommentID, got.Comments[0].Replies[0].CommentID)
}

func TestBoard_LockedPostRejectsComments(t *testing.T) {
	f, svc, post := newBoardFixture(t)
	ctx := context.Background()
	_, err := f.repos.Board.UpdatePost(ctx, post.PostID, store.Row{"locked": true})
	require.NoError(t, err)

	_, err = svc.AddComment(ctx, parent1, AddCommentRequest{PostID: post.PostID, Content: "추가 문의"})
	assert.True(t, errors.Is(err, apperr.ErrPostLocked))
	var ve apperr.ValidationError
	assert.True(t, errors.As(err, &ve))

	var pe apperr.PermissionError
	_, err = svc.AddComment(ctx, parent2, AddCommentRequest{PostID: post.PostID, Content: "x"})
	assert.True(t, errors.As(err, &pe))
}
