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

func TestRoutesRepo_StopsKeepOrder(t *testing.T) {
	m := store.NewMemoryStore()
	repo := NewRoutesRepo(m, domain.FixedClock{T: testNow})
	ctx := context.Background()

	rt, err := repo.Create(ctx, &domain.Route{SchoolID: "sc1", Name: "2호차", Stops: []string{"후문", "정문", "놀이터"}})
	require.NoError(t, err)
	assert.NotEmpty(t, rt.RouteID)
	assert.Equal(t, []string{"후문", "정문", "놀이터"}, rt.Stops)
	assert.True(t, rt.HasStop("정문"))

	_, err = repo.Create(ctx, &domain.Route{RouteID: "r1", SchoolID: "sc1", Name: "1호차"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Route{RouteID: "r9", SchoolID: "sc2", Name: "0호차"})
	require.NoError(t, err)

	list, err := repo.ListBySchool(ctx, "sc1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "1호차", list[0].Name)
	assert.Empty(t, list[0].Stops)
	assert.Len(t, list[1].Stops, 3)

	replaced, err := repo.ReplaceStops(ctx, rt.RouteID, []string{"체육관"})
	require.NoError(t, err)
	assert.Equal(t, []string{"체육관"}, replaced.Stops)

	renamed, err := repo.Rename(ctx, rt.RouteID, "2호차 (오후)")
	require.NoError(t, err)
	assert.Equal(t, "2호차 (오후)", renamed.Name)
	assert.Equal(t, []string{"체육관"}, renamed.Stops)

	_, err = repo.Rename(ctx, "ghost", "x")
	assert.True(t, apperr.IsNotFound(err))
	_, err = repo.ReplaceStops(ctx, "ghost", []string{"x"})
	assert.True(t, apperr.IsNotFound(err))

	require.NoError(t, repo.Delete(ctx, rt.RouteID))
	_, err = repo.Get(ctx, rt.RouteID)
	assert.True(t, apperr.IsNotFound(err))
	stops, err := m.Select(ctx, store.RouteStops, store.Filter{"route_id": rt.RouteID}, store.SelectOptions{})
	require.NoError(t, err)
	assert.Empty(t, stops)
	assert.NoError(t, repo.Delete(ctx, "ghost"))
}

func TestStudentsRepo_ClearRoute(t *testing.T) {
	m := store.NewMemoryStore()
	repo := NewStudentsRepo(m, domain.FixedClock{T: testNow})
	ctx := context.Background()

	for _, st := range []*domain.Student{
		{StudentID: "s1", Name: "김민수", RouteID: strPtr("r1"), PickupPoint: strPtr("정문")},
		{StudentID: "s2", Name: "박지훈", RouteID: strPtr("r1"), PickupPoint: strPtr("후문")},
		{StudentID: "s3", Name: "이도윤", RouteID: strPtr("r2"), PickupPoint: strPtr("정문")},
	} {
		_, err := repo.Create(ctx, st)
		require.NoError(t, err)
	}

	riders, err := repo.ListByRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, riders, 2)

	n, err := repo.ClearRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	riders, err = repo.ListByRoute(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, riders)
	s1, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, s1.PickupPoint)
	s3, err := repo.Get(ctx, "s3")
	require.NoError(t, err)
	assert.Equal(t, "r2", *s3.RouteID)
}
