package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"thicket/internal/models"
	"thicket/internal/storage/memory"

	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type fixture struct {
	svc   *Service
	store *memory.Store
	clock *testClock
}

func newFixture(t *testing.T, words ...string) *fixture {
	t.Helper()
	clock := &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.New(clock.Now)
	svc := New(store, NewPolicy(DefaultMaxContent, words), Options{}, nil, nil).WithClock(clock.Now)
	return &fixture{svc: svc, store: store, clock: clock}
}

func (f *fixture) user(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "x"}
	require.NoError(t, f.store.CreateUser(context.Background(), u))
	return u
}

func (f *fixture) thread(t *testing.T, author *models.User, content string) *models.Comment {
	t.Helper()
	c, err := f.svc.CreateThread(context.Background(), author.ID, content)
	require.NoError(t, err)
	return c
}

func (f *fixture) reply(t *testing.T, parent *models.Comment, author *models.User, content string) *models.Comment {
	t.Helper()
	c, err := f.svc.CreateReply(context.Background(), parent.ID, author.ID, content)
	require.NoError(t, err)
	return c
}

func requireValidation(t *testing.T, err error, field string) {
	t.Helper()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "want ValidationError, got %v", err)
	require.Equal(t, field, verr.Field)
}

func requireDuplicate(t *testing.T, err error, scope DuplicateScope, existing uint) {
	t.Helper()
	var derr *DuplicateError
	require.True(t, errors.As(err, &derr), "want DuplicateError, got %v", err)
	require.Equal(t, scope, derr.Scope)
	require.Equal(t, existing, derr.ExistingID)
}
