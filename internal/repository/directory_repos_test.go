package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/store"
)

func strPtr(s string) *string { return &s }

func TestStudentsRepo_CreateListUpdate(t *testing.T) {
	m := store.NewMemoryStore()
	repo := NewStudentsRepo(m, domain.FixedClock{T: testNow})
	ctx := context.Background()

	a, err := repo.Create(ctx, &domain.Student{Name: "김민수", SchoolID: strPtr("sc1"), ParentUserID: strPtr("p1"), FeeAmount: 100, IsActive: true})
	require.NoError(t, err)
	assert.NotEmpty(t, a.StudentID)
	_, err = repo.Create(ctx, &domain.Student{StudentID: "s2", Name: "박지훈", ParentUserID: strPtr("p1"), FeeAmount: 80})
	require.NoError(t, err)

	unassigned, err := repo.ListUnassigned(ctx)
	require.NoError(t, err)
	require.Len(t, unassigned, 1)
	assert.Equal(t, "s2", unassigned[0].StudentID)

	byParent, err := repo.ListByParentAndSchool(ctx, "p1", "sc1")
	require.NoError(t, err)
	require.Len(t, byParent, 1)
	assert.Equal(t, int64(100), byParent[0].FeeAmount)

	updated, err := repo.Update(ctx, "s2", store.Row{"school_id": "sc1", "route_id": nil})
	require.NoError(t, err)
	assert.True(t, updated.InSchool("sc1"))

	_, err = repo.Update(ctx, "ghost", store.Row{"name": "x"})
	assert.True(t, apperr.IsNotFound(err))
}

func TestSchoolsAndUsersRepo(t *testing.T) {
	m := store.NewMemoryStore()
	schools := NewSchoolsRepo(m, domain.FixedClock{T: testNow})
	users := NewUsersRepo(m)
	ctx := context.Background()

	_, err := schools.Create(ctx, &domain.School{SchoolID: "sc2", Name: "한빛초", DefaultMonthlyFee: 90})
	require.NoError(t, err)
	_, err = schools.Create(ctx, &domain.School{SchoolID: "sc1", Name: "가온초"})
	require.NoError(t, err)
	list, err := schools.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	got, err := schools.Get(ctx, "sc2")
	require.NoError(t, err)
	assert.Equal(t, int64(90), got.DefaultMonthlyFee)

	require.NoError(t, users.Upsert(ctx, &domain.User{UserID: "p1", Name: strPtr("홍길동"), Role: domain.RoleParent}))
	require.NoError(t, users.Upsert(ctx, &domain.User{UserID: "p1", Name: strPtr("홍길순"), Role: domain.RoleParent}))
	u, err := users.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "홍길순", *u.Name)

	parents, err := users.ListByRole(ctx, domain.RoleParent)
	require.NoError(t, err)
	assert.Len(t, parents, 1)

	_, err = users.Get(ctx, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestAlertsRepo_DeleteIsIdempotent(t *testing.T) {
	repo := NewAlertsRepo(store.NewMemoryStore(), domain.FixedClock{T: testNow})
	ctx := context.Background()

	a, err := repo.Create(ctx, &domain.Alert{StudentID: "s1", SchoolID: "sc1", Year: 2025, Month: 2, Type: domain.AlertPayment, CreatedBy: "p1"})
	require.NoError(t, err)
	assert.Equal(t, domain.AlertPending, a.Status)

	list, err := repo.List(ctx, AlertFilter{Type: domain.AlertPayment})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.Delete(ctx, a.AlertID))
	require.NoError(t, repo.Delete(ctx, a.AlertID))
	_, err = repo.Get(ctx, a.AlertID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestBoardRepo_PostsAndComments(t *testing.T) {
	repo := NewBoardRepo(store.NewMemoryStore(), domain.FixedClock{T: testNow})
	ctx := context.Background()

	p, err := repo.CreatePost(ctx, &domain.BoardPost{Title: "t", Content: "c", AuthorID: "p1", SchoolID: strPtr("sc1"), ParentOnly: true})
	require.NoError(t, err)
	assert.False(t, p.Locked)

	_, err = repo.CreateComment(ctx, &domain.BoardComment{PostID: p.PostID, AuthorID: "a1", Content: "answer"})
	require.NoError(t, err)
	comments, err := repo.ListComments(ctx, p.PostID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	locked, err := repo.UpdatePost(ctx, p.PostID, store.Row{"locked": true})
	require.NoError(t, err)
	assert.True(t, locked.Locked)

	_, err = repo.UpdatePost(ctx, "ghost", store.Row{"locked": true})
	assert.True(t, apperr.IsNotFound(err))

	posts, err := repo.ListPosts(ctx, "sc1")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	posts, err = repo.ListPosts(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, posts)
}
