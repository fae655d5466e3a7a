package services

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"thicket/internal/models"
	"thicket/internal/utils"

	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	for k := KindThreads; k <= KindTrending; k++ {
		got, ok := ParseKind(k.String())
		require.True(t, ok)
		require.Equal(t, k, got)
	}
	_, ok := ParseKind("messages")
	require.False(t, ok)
	require.Equal(t, "Kind(42)", Kind(42).String())
}

func TestList_Pagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	for i := 0; i < 17; i++ {
		f.thread(t, alice, fmt.Sprintf("thread number %d", i))
	}

	p1, err := f.svc.List(ctx, alice.ID, KindThreads, 1)
	require.NoError(t, err)
	require.Len(t, p1.Rows, 16)
	require.True(t, p1.HasNext)
	require.False(t, p1.HasPrevious)
	require.Equal(t, "thread number 16", p1.Rows[0].Comment.Content)

	p2, err := f.svc.List(ctx, alice.ID, KindThreads, 2)
	require.NoError(t, err)
	require.Len(t, p2.Rows, 1)
	require.False(t, p2.HasNext)
	require.True(t, p2.HasPrevious)
	require.Equal(t, "thread number 0", p2.Rows[0].Comment.Content)
}

func TestList_PastTheEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice")
	for i := 0; i < 3; i++ {
		f.thread(t, alice, fmt.Sprintf("only %d", i))
	}

	p, err := f.svc.List(ctx, alice.ID, KindThreads, 9999)
	require.NoError(t, err)
	require.Len(t, p.Rows, 3)
	require.Equal(t, 1, p.Number)
	require.False(t, p.HasPrevious)
	require.False(t, p.ShowControls)
}

func TestList_UnknownKind(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.List(context.Background(), 1, Kind(99), 1)
	requireValidation(t, err, "kind")
}

func TestList_ViewThenClear(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	root := f.thread(t, carol, "where is everyone")
	f.reply(t, root, bob, "over here @alice")
	f.thread(t, alice, "my thread")
	mine := f.thread(t, alice, "another of mine")
	f.reply(t, mine, bob, "replying to alice")
	_, err := f.svc.Follow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	counters, err := f.svc.Counters(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, counters.Mentions)
	require.EqualValues(t, 1, counters.Replies)
	require.EqualValues(t, 1, counters.Followers)
	require.Zero(t, counters.Messages)

	for _, kind := range []Kind{KindMentions, KindReplies, KindFollowers} {
		p, err := f.svc.List(ctx, alice.ID, kind, 1)
		require.NoError(t, err)
		require.Len(t, p.Rows, 1, kind.String())
		require.True(t, p.Rows[0].Unseen, "first view shows the row as new")

		p, err = f.svc.List(ctx, alice.ID, kind, 1)
		require.NoError(t, err)
		require.False(t, p.Rows[0].Unseen, "second view shows it as seen")
	}

	counters, err = f.svc.Counters(ctx, alice.ID)
	require.NoError(t, err)
	require.Zero(t, counters.Mentions)
	require.Zero(t, counters.Replies)
	require.Zero(t, counters.Followers)
}

func TestMarkSeen_Watermark(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	root := f.thread(t, carol, "thread")

	before := f.reply(t, root, bob, "hey @alice")
	f.clock.Advance(time.Second)
	call := f.clock.Now()

	n, err := f.svc.MarkSeen(ctx, alice.ID, SeenMentions)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	// idempotent: nothing left to clear at the same instant
	n, err = f.svc.MarkSeen(ctx, alice.ID, SeenMentions)
	require.NoError(t, err)
	require.Zero(t, n)

	f.clock.Advance(time.Second)
	other := f.thread(t, bob, "another")
	after := f.reply(t, other, carol, "yo @alice")

	got, err := f.svc.Comment(ctx, before.ID)
	require.NoError(t, err)
	require.GreaterOrEqual(t, got.MentionSeenAt, models.Watermark(call))

	got, err = f.svc.Comment(ctx, after.ID)
	require.NoError(t, err)
	require.Zero(t, got.MentionSeenAt)

	counters, err := f.svc.Counters(ctx, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, counters.Mentions)

	_, err = f.svc.MarkSeen(ctx, alice.ID, SeenKind("messages"))
	requireValidation(t, err, "kind")
}

func TestTrending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cache, err := utils.NewLocalCache(16)
	require.NoError(t, err)
	f.svc.cache = cache
	f.svc.opts.TrendingSample = 2

	alice, bob := f.user(t, "alice"), f.user(t, "bob")
	oldest := f.thread(t, alice, "too old for the sample")
	quiet := f.thread(t, alice, "quiet")
	busy := f.thread(t, alice, "busy")
	require.NoError(t, f.store.UpdateScore(ctx, oldest.ID, 99))
	require.NoError(t, f.store.UpdateScore(ctx, quiet.ID, 1))
	require.NoError(t, f.store.UpdateScore(ctx, busy.ID, 5))

	p, err := f.svc.List(ctx, bob.ID, KindTrending, 1)
	require.NoError(t, err)
	require.Len(t, p.Rows, 2)
	require.Equal(t, busy.ID, p.Rows[0].Comment.ID)
	require.Equal(t, quiet.ID, p.Rows[1].Comment.ID)

	// served from cache until the entry is dropped
	require.NoError(t, f.store.UpdateScore(ctx, quiet.ID, 50))
	p, err = f.svc.Trending(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, busy.ID, p.Rows[0].Comment.ID)

	// a new thread invalidates the first page and pushes quiet out of the sample
	fresh := f.thread(t, bob, "brand new")
	p, err = f.svc.Trending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, p.Rows, 2)
	require.Equal(t, busy.ID, p.Rows[0].Comment.ID)
	require.Equal(t, fresh.ID, p.Rows[1].Comment.ID)
}

func TestRankingService(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newFixture(t)
	ranking := NewRankingService(f.store, slog.Default())
	ranking.now = f.clock.Now
	f.svc.ranking = ranking

	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")
	root := f.thread(t, alice, "rank me")
	r := f.reply(t, root, bob, "one")
	f.reply(t, r, carol, "two")
	_, err := f.svc.Save(ctx, carol.ID, root.ID)
	require.NoError(t, err)

	want := int(utils.CalculateScore(root.CreatedAt, f.clock.Now(), 2, 1))
	require.Positive(t, want)

	go ranking.Run(ctx)
	require.Eventually(t, func() bool {
		got, err := f.store.CommentByID(ctx, root.ID)
		return err == nil && got.Score == want
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-ranking.Done():
	case <-time.After(time.Second):
		t.Fatal("ranking worker did not stop")
	}
}

func TestRankingService_RefreshSampleDecaysIdleThreads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	ranking := NewRankingService(f.store, slog.Default())
	ranking.now = f.clock.Now

	users := make([]*models.User, 11)
	for i := range users {
		users[i] = f.user(t, fmt.Sprintf("user%d", i))
	}
	old := f.thread(t, users[0], "old thread")
	for i, u := range users[1:] {
		f.reply(t, old, u, fmt.Sprintf("reply %d", i))
	}
	require.NoError(t, ranking.UpdateScore(ctx, old.ID))

	f.clock.Advance(100 * time.Hour)
	fresh := f.thread(t, users[1], "fresh thread")
	f.reply(t, fresh, users[2], "first!")
	require.NoError(t, ranking.UpdateScore(ctx, fresh.ID))

	p, err := f.svc.Trending(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, old.ID, p.Rows[0].Comment.ID)

	n, err := ranking.RefreshSample(ctx, DefaultSample)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	// a cancelled worker still flushes what was queued
	stopped, cancel := context.WithCancel(ctx)
	cancel()
	ranking.Run(stopped)
	<-ranking.Done()

	got, err := f.store.CommentByID(ctx, old.ID)
	require.NoError(t, err)
	require.Equal(t, int(utils.CalculateScore(old.CreatedAt, f.clock.Now(), 10, 0)), got.Score)

	p, err = f.svc.Trending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, p.Rows, 2)
	require.Equal(t, fresh.ID, p.Rows[0].Comment.ID)
	require.Equal(t, old.ID, p.Rows[1].Comment.ID)
}
