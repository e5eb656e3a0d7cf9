package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"shuttle-ledger/internal/apperr"
	"shuttle-ledger/internal/domain"
	"shuttle-ledger/internal/journal"
	"shuttle-ledger/internal/store"
)

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

var (
	admin   = domain.Actor{UserID: "admin1", Name: "관리자", Role: domain.RoleAdmin}
	parent1 = domain.Actor{UserID: "p1", Name: "김엄마", Role: domain.RoleParent}
	parent2 = domain.Actor{UserID: "p2", Role: domain.RoleParent}
)

func strp(s string) *string { return &s }

type fixture struct {
	mem   *store.MemoryStore
	clock domain.FixedClock
	repos *Repos
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemoryStore()
	clock := domain.FixedClock{T: testNow}
	return &fixture{mem: mem, clock: clock, repos: NewRepos(mem, clock)}
}

func (f *fixture) school(t *testing.T, id, name string, fee int64) {
	t.Helper()
	_, err := f.repos.Schools.Create(context.Background(), &domain.School{SchoolID: id, Name: name, DefaultMonthlyFee: fee})
	require.NoError(t, err)
}

func (f *fixture) student(t *testing.T, st domain.Student) *domain.Student {
	t.Helper()
	created, err := f.repos.Students.Create(context.Background(), &st)
	require.NoError(t, err)
	return created
}

func (f *fixture) route(t *testing.T, id, schoolID, name string, stops ...string) *domain.Route {
	t.Helper()
	rt, err := f.repos.Routes.Create(context.Background(), &domain.Route{RouteID: id, SchoolID: schoolID, Name: name, Stops: stops})
	require.NoError(t, err)
	return rt
}

func (f *fixture) payment(t *testing.T, p domain.Payment) {
	t.Helper()
	_, err := f.repos.Payments.Record(context.Background(), &p)
	require.NoError(t, err)
}

// failingStore refuses inserts into one collection
type failingStore struct {
	store.Store
	collection string
}

func (s failingStore) Insert(ctx context.Context, collection string, rows []store.Row, opts store.InsertOptions) ([]store.Row, error) {
	if collection == s.collection {
		return nil, apperr.Unavailable("insert", collection, errors.New("connection reset by peer"))
	}
	return s.Store.Insert(ctx, collection, rows, opts)
}

// recordingJournal keeps entries in memory
type recordingJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (j *recordingJournal) Record(_ context.Context, e journal.Entry) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
}

func (j *recordingJournal) statuses() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.entries))
	for _, e := range j.entries {
		if e.Step != "" {
			out = append(out, e.Status+":"+e.Step)
		} else {
			out = append(out, e.Status)
		}
	}
	return out
}

// recordingNotifier counts announced alerts
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*domain.Alert
}

func (n *recordingNotifier) AlertCreated(_ context.Context, a *domain.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

func nopLogger() *zap.Logger { return zap.NewNop() }
