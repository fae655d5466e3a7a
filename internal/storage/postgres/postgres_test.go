package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"thicket/internal/db"
	"thicket/internal/models"
	"thicket/internal/storage"

	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Integration tests against a real PostgreSQL started with testcontainers.
//
//	GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -count=1
func startPostgres(t *testing.T) *Store {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "thicket"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/thicket?sslmode=disable", host, port.Port())

	gdb, err := db.Open(ctx, dsn)
	require.NoError(t, err)
	st := New(gdb)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustUser(t *testing.T, st *Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", Password: "hash"}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func mustComment(t *testing.T, st *Store, author *models.User, parent *models.Comment, content string) *models.Comment {
	t.Helper()
	c := &models.Comment{CreatedByID: author.ID, Content: content, Ancestors: []uint{}}
	if parent != nil {
		pid := parent.ID
		c.ParentID = &pid
		c.Ancestors = append(append([]uint{}, parent.Ancestors...), parent.ID)
	}
	require.NoError(t, st.CreateComment(context.Background(), c))
	return c
}

func TestIntegration_Users(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()

	alice := mustUser(t, st, "Alice")

	got, err := st.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	err = st.CreateUser(ctx, &models.User{Username: "ALICE", Email: "other@example.com", Password: "x"})
	require.ErrorIs(t, err, storage.ErrConflict)

	// the self-edge exists but is never listed or counted
	followers, err := st.ListFollowers(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	require.Empty(t, followers)
	counters, err := st.Counters(ctx, alice.ID)
	require.NoError(t, err)
	require.Zero(t, counters.Followers)

	_, err = st.UserByID(ctx, 9999)
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestIntegration_CommentsAndDuplicates(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	alice, bob, carol := mustUser(t, st, "alice"), mustUser(t, st, "bob"), mustUser(t, st, "carol")

	root := mustComment(t, st, alice, nil, "Root")
	r1 := mustComment(t, st, bob, root, "Nice")
	r2 := mustComment(t, st, carol, r1, "deeper")

	got, err := st.CommentByID(ctx, r2.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{root.ID, r1.ID}, []uint(got.Ancestors))
	require.Equal(t, "carol", got.CreatedBy.Username)

	// one reply per (parent, author)
	dup := &models.Comment{CreatedByID: bob.ID, ParentID: &root.ID, Content: "again", Ancestors: []uint{root.ID}}
	require.ErrorIs(t, st.CreateComment(ctx, dup), storage.ErrConflict)

	threadRoot := root.ID
	found, err := st.FindDuplicate(ctx, storage.DuplicateQuery{Content: "nice", ThreadRootID: &threadRoot})
	require.NoError(t, err)
	require.Equal(t, r1.ID, found.ID)

	found, err = st.FindDuplicate(ctx, storage.DuplicateQuery{Content: "ROOT", ThreadRootID: &threadRoot})
	require.NoError(t, err)
	require.Equal(t, root.ID, found.ID)

	_, err = st.FindDuplicate(ctx, storage.DuplicateQuery{Content: "nice", RootsOnly: true})
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.FindDuplicate(ctx, storage.DuplicateQuery{Content: "nice", ThreadRootID: &threadRoot, ExcludeID: r1.ID})
	require.ErrorIs(t, err, storage.ErrNotFound)

	replies, saves, err := st.ThreadActivity(ctx, root.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, replies)
	require.Zero(t, saves)

	n, err := st.CountChildren(ctx, r1.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// removing a middle node leaves the descendant path alone
	require.NoError(t, st.DeleteComment(ctx, r1.ID))
	got, err = st.CommentByID(ctx, r2.ID)
	require.NoError(t, err)
	require.Equal(t, []uint{root.ID, r1.ID}, []uint(got.Ancestors))
}

func TestIntegration_WatermarksAndListings(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	alice, bob := mustUser(t, st, "alice"), mustUser(t, st, "bob")

	root := mustComment(t, st, alice, nil, "thread")
	mention := &models.Comment{
		CreatedByID: bob.ID, ParentID: &root.ID, Content: "hey @alice",
		Ancestors: []uint{root.ID}, MentionID: &alice.ID,
	}
	require.NoError(t, st.CreateComment(ctx, mention))

	b, created, err := st.CreateBond(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, created)
	again, created, err := st.CreateBond(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, b.ID, again.ID)

	counters, err := st.Counters(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, storage.Counters{Followers: 1, Mentions: 1, Replies: 1}, counters)

	at := models.Watermark(time.Now().Add(time.Second))
	n, err := st.MarkMentionsSeen(ctx, alice.ID, at)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	n, err = st.MarkMentionsSeen(ctx, alice.ID, at)
	require.NoError(t, err)
	require.Zero(t, n)

	// a cutoff before the row's creation leaves it unseen
	n, err = st.MarkRepliesSeen(ctx, alice.ID, models.Watermark(time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	require.Zero(t, n)

	rows, err := st.ListMentions(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.InDelta(t, at, rows[0].MentionSeenAt, 1e-3)

	_, err = st.CreateSave(ctx, bob.ID, 9999)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.CreateSave(ctx, bob.ID, root.ID)
	require.NoError(t, err)
	saved, err := st.ListSaved(ctx, bob.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, "thread", saved[0].Post.Content)

	feed, err := st.ListFolloweeThreads(ctx, bob.ID, 0, 10)
	require.NoError(t, err)
	require.Len(t, feed, 1)
}

func TestIntegration_Trending(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	alice := mustUser(t, st, "alice")

	old := mustComment(t, st, alice, nil, "old")
	quiet := mustComment(t, st, alice, nil, "quiet")
	busy := mustComment(t, st, alice, nil, "busy")
	require.NoError(t, st.UpdateScore(ctx, old.ID, 99))
	require.NoError(t, st.UpdateScore(ctx, busy.ID, 5))

	rows, err := st.ListTrending(ctx, 2, 0, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, busy.ID, rows[0].ID)
	require.Equal(t, quiet.ID, rows[1].ID)
}

func TestIntegration_DeleteInactiveUsers(t *testing.T) {
	st := startPostgres(t)
	ctx := context.Background()
	idle, poster := mustUser(t, st, "idle"), mustUser(t, st, "poster")
	mustComment(t, st, poster, nil, "here")

	n, err := st.DeleteInactiveUsers(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	_, err = st.UserByID(ctx, idle.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	_, err = st.UserByID(ctx, poster.ID)
	require.NoError(t, err)
}
