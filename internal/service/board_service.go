package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

// BoardService reading and commenting on inquiry posts. Posts are created through
// WorkflowService.RegisterInquiry and locked through WorkflowService.LockBoardPost.
type BoardService interface {
	ListPosts(ctx context.Context, actor domain.Actor, schoolID string) ([]*domain.BoardPost, error)
	GetPost(ctx context.Context, actor domain.Actor, postID string) (*domain.PostDetail, error)
	AddComment(ctx context.Context, actor domain.Actor, req AddCommentRequest) (*domain.BoardComment, error)
}

type AddCommentRequest struct {
	PostID          string  `json:"post_id"`
	Content         string  `json:"content"`
	ParentCommentID *string `json:"parent_comment_id,omitempty"`
}

type boardService struct {
	repos  *Repos
	clock  domain.Clock
	logger *zap.Logger
}

func NewBoardService(repos *Repos, clock domain.Clock, logger *zap.Logger) BoardService {
	return &boardService{repos: repos, clock: clock, logger: logger}
}

// ListPosts admins see everything (optionally one school); parents see what they wrote
// and what targets them.
func (s *boardService) ListPosts(ctx context.Context, actor domain.Actor, schoolID string) ([]*domain.BoardPost, error) {
	if err := requireKnownRole(actor); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return s.repos.Board.ListPosts(ctx, schoolID)
	}
	all, err := s.repos.Board.ListPosts(ctx, "")
	if err != nil {
		return nil, err
	}
	out := make([]*domain.BoardPost, 0)
	for _, p := range all {
		if p.AuthorID == actor.UserID || (p.TargetParentID != nil && *p.TargetParentID == actor.UserID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func canView(actor domain.Actor, p *domain.BoardPost) bool {
	if actor.IsAdmin() || !p.ParentOnly {
		return true
	}
	return p.AuthorID == actor.UserID || (p.TargetParentID != nil && *p.TargetParentID == actor.UserID)
}

// GetPost counts a view and returns the post with comments grouped one level deep,
// oldest first.
func (s *boardService) GetPost(ctx context.Context, actor domain.Actor, postID string) (*domain.PostDetail, error) {
	if err := requireKnownRole(actor); err != nil {
		return nil, err
	}
	post, err := s.repos.Board.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, post) {
		return nil, apperr.PermissionError{Role: string(actor.Role), Required: "post author or target"}
	}

	if viewed, err := s.repos.Board.UpdatePost(ctx, postID, store.Row{"view_count": post.ViewCount + 1}); err != nil {
		s.logger.Warn("view count update failed", zap.String("post_id", postID), zap.Error(err))
	} else {
		post = viewed
	}

	comments, err := s.repos.Board.ListComments(ctx, postID)
	if err != nil {
		return nil, err
	}
	return &domain.PostDetail{BoardPost: *post, Comments: threadComments(comments)}, nil
}

// threadComments replies whose parent is missing are dropped
func threadComments(comments []*domain.BoardComment) []*domain.CommentThread {
	byID := make(map[string]*domain.CommentThread, len(comments))
	top := make([]*domain.CommentThread, 0)
	for _, c := range comments {
		if c.ParentCommentID == nil {
			t := &domain.CommentThread{BoardComment: *c, Replies: []*domain.BoardComment{}}
			byID[c.CommentID] = t
			top = append(top, t)
		}
	}
	for _, c := range comments {
		if c.ParentCommentID == nil {
			continue
		}
		if parent, ok := byID[*c.ParentCommentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}
	return top
}

// AddComment rejects locked posts and replies to replies, then bumps the post's
// comment counter.
func (s *boardService) AddComment(ctx context.Context, actor domain.Actor, req AddCommentRequest) (*domain.BoardComment, error) {
	if err := requireKnownRole(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, apperr.NewValidationError("content", "", "content is required")
	}
	post, err := s.repos.Board.GetPost(ctx, req.PostID)
	if err != nil {
		return nil, err
	}
	if !canView(actor, post) {
		return nil, apperr.PermissionError{Role: string(actor.Role), Required: "post author or target"}
	}
	if post.Locked {
		return nil, apperr.ValidationError{Field: "post_id", Value: req.PostID, Message: "post is locked", Err: apperr.ErrPostLocked}
	}
	if req.ParentCommentID != nil && *req.ParentCommentID == "" {
		req.ParentCommentID = nil
	}
	if req.ParentCommentID != nil {
		parent, err := s.repos.Board.GetComment(ctx, *req.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != req.PostID {
			return nil, apperr.NewValidationError("parent_comment_id", *req.ParentCommentID, "parent comment belongs to another post")
		}
		if parent.ParentCommentID != nil {
			return nil, apperr.ValidationError{Field: "parent_comment_id", Value: *req.ParentCommentID, Message: "replies cannot be nested", Err: apperr.ErrNestedReply}
		}
	}

	c, err := s.repos.Board.CreateComment(ctx, &domain.BoardComment{
		PostID:          req.PostID,
		AuthorID:        actor.UserID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.repos.Board.UpdatePost(ctx, req.PostID, store.Row{
		"comment_count":   post.CommentCount + 1,
		"last_comment_at": c.CreatedAt,
	}); err != nil {
		return nil, err
	}
	return c, nil
}
