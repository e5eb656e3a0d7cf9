package repository

import (
	"context"

	"github.com/google/uuid"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

type BoardRepository interface {
	CreatePost(ctx context.Context, p *domain.BoardPost) (*domain.BoardPost, error)
	GetPost(ctx context.Context, id string) (*domain.BoardPost, error)
	ListPosts(ctx context.Context, schoolID string) ([]*domain.BoardPost, error)
	UpdatePost(ctx context.Context, id string, fields store.Row) (*domain.BoardPost, error)
	CreateComment(ctx context.Context, c *domain.BoardComment) (*domain.BoardComment, error)
	GetComment(ctx context.Context, id string) (*domain.BoardComment, error)
	ListComments(ctx context.Context, postID string) ([]*domain.BoardComment, error)
}

var _ BoardRepository = (*BoardRepo)(nil)

// BoardRepo inquiry posts and their comments
type BoardRepo struct {
	store store.Store
	clock domain.Clock
}

func NewBoardRepo(s store.Store, clock domain.Clock) *BoardRepo {
	return &BoardRepo{store: s, clock: clock}
}

// CreatePost stores p with a fresh id; counters start at zero
func (r *BoardRepo) CreatePost(ctx context.Context, p *domain.BoardPost) (*domain.BoardPost, error) {
	now := r.clock.Now()
	row := store.Row{
		"id":               uuid.NewString(),
		"title":            p.Title,
		"content":          p.Content,
		"author_id":        p.AuthorID,
		"school_id":        nullable(p.SchoolID),
		"target_parent_id": nullable(p.TargetParentID),
		"parent_only":      p.ParentOnly,
		"locked":           false,
		"view_count":       0,
		"comment_count":    0,
		"last_comment_at":  nil,
		"created_at":       now,
		"updated_at":       now,
	}
	out, err := r.store.Insert(ctx, store.BoardPosts, []store.Row{row}, store.InsertOptions{})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return postFromRow(out[0]), nil
	}
	return postFromRow(row), nil
}

// GetPost by id
func (r *BoardRepo) GetPost(ctx context.Context, id string) (*domain.BoardPost, error) {
	rows, err := r.store.Select(ctx, store.BoardPosts, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "post", ID: id}
	}
	return postFromRow(rows[0]), nil
}

// ListPosts newest first; schoolID "" lists every school
func (r *BoardRepo) ListPosts(ctx context.Context, schoolID string) ([]*domain.BoardPost, error) {
	var f store.Filter
	if schoolID != "" {
		f = store.Filter{"school_id": schoolID}
	}
	rows, err := r.store.Select(ctx, store.BoardPosts, f, store.SelectOptions{OrderBy: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.BoardPost, 0, len(rows))
	for _, row := range rows {
		out = append(out, postFromRow(row))
	}
	return out, nil
}

// UpdatePost patches fields and returns the post; NotFound when no row matched
func (r *BoardRepo) UpdatePost(ctx context.Context, id string, fields store.Row) (*domain.BoardPost, error) {
	fields["updated_at"] = r.clock.Now()
	rows, err := r.store.Patch(ctx, store.BoardPosts, store.Filter{"id": id}, fields)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "post", ID: id}
	}
	return postFromRow(rows[0]), nil
}

// CreateComment stores c with a fresh id
func (r *BoardRepo) CreateComment(ctx context.Context, c *domain.BoardComment) (*domain.BoardComment, error) {
	now := r.clock.Now()
	row := store.Row{
		"id":                uuid.NewString(),
		"post_id":           c.PostID,
		"author_id":         c.AuthorID,
		"content":           c.Content,
		"parent_comment_id": nullable(c.ParentCommentID),
		"created_at":        now,
		"updated_at":        now,
	}
	out, err := r.store.Insert(ctx, store.BoardComments, []store.Row{row}, store.InsertOptions{})
	if err != nil {
		return nil, err
	}
	if len(out) > 0 {
		return commentFromRow(out[0]), nil
	}
	return commentFromRow(row), nil
}

// GetComment by id
func (r *BoardRepo) GetComment(ctx context.Context, id string) (*domain.BoardComment, error) {
	rows, err := r.store.Select(ctx, store.BoardComments, store.Filter{"id": id}, store.SelectOptions{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundError{Entity: "comment", ID: id}
	}
	return commentFromRow(rows[0]), nil
}

// ListComments oldest first
func (r *BoardRepo) ListComments(ctx context.Context, postID string) ([]*domain.BoardComment, error) {
	rows, err := r.store.Select(ctx, store.BoardComments, store.Filter{"post_id": postID}, store.SelectOptions{OrderBy: "created_at"})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.BoardComment, 0, len(rows))
	for _, row := range rows {
		out = append(out, commentFromRow(row))
	}
	return out, nil
}

func postFromRow(r store.Row) *domain.BoardPost {
	return &domain.BoardPost{
		PostID:         getString(r, "id"),
		Title:          getString(r, "title"),
		Content:        getString(r, "content"),
		AuthorID:       getString(r, "author_id"),
		SchoolID:       getStringPtr(r, "school_id"),
		TargetParentID: getStringPtr(r, "target_parent_id"),
		ParentOnly:     getBool(r, "parent_only"),
		Locked:         getBool(r, "locked"),
		ViewCount:      getInt(r, "view_count"),
		CommentCount:   getInt(r, "comment_count"),
		LastCommentAt:  getTimePtr(r, "last_comment_at"),
		CreatedAt:      getTime(r, "created_at"),
		UpdatedAt:      getTime(r, "updated_at"),
	}
}

func commentFromRow(r store.Row) *domain.BoardComment {
	return &domain.BoardComment{
		CommentID:       getString(r, "id"),
		PostID:          getString(r, "post_id"),
		AuthorID:        getString(r, "author_id"),
		Content:         getString(r, "content"),
		ParentCommentID: getStringPtr(r, "parent_comment_id"),
		CreatedAt:       getTime(r, "created_at"),
		UpdatedAt:       getTime(r, "updated_at"),
	}
}
