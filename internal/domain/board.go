package domain

import "time"

// BoardPost 문의 게시글 (board_posts collection)
type BoardPost struct {
	PostID         string     `json:"post_id"`
	Title          string     `json:"title"`
	Content        string     `json:"content"`
	AuthorID       string     `json:"author_id"`
	SchoolID       *string    `json:"school_id"`
	TargetParentID *string    `json:"target_parent_id"`
	ParentOnly     bool       `json:"parent_only"`
	Locked         bool       `json:"locked"` // terminal, set once answered
	ViewCount      int        `json:"view_count"`
	CommentCount   int        `json:"comment_count"`
	LastCommentAt  *time.Time `json:"last_comment_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// BoardComment comment with an optional single-level parent
type BoardComment struct {
	CommentID       string    `json:"comment_id"`
	PostID          string    `json:"post_id"`
	AuthorID        string    `json:"author_id"`
	Content         string    `json:"content"`
	ParentCommentID *string   `json:"parent_comment_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CommentThread top-level comment with its replies
type CommentThread struct {
	BoardComment
	Replies []*BoardComment `json:"replies"`
}

// PostDetail post plus threaded comments
type PostDetail struct {
	BoardPost
	Comments []*CommentThread `json:"comments"`
}
