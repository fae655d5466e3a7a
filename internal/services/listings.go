package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"thicket/internal/logger"
	"thicket/internal/models"
	"thicket/internal/utils"
)

// Kind selects a listing.
type Kind int

const (
	KindThreads Kind = iota
	KindReplies
	KindMentions
	KindFollowers
	KindFollowing
	KindSaved
	KindTrending
)

var kindNames = [...]string{
	KindThreads:   "threads",
	KindReplies:   "replies",
	KindMentions:  "mentions",
	KindFollowers: "followers",
	KindFollowing: "following",
	KindSaved:     "saved",
	KindTrending:  "trending",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a listing name to its Kind.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// Row is one listing entry: a comment, or a user for the follow listings.
type Row struct {
	Comment *models.Comment `json:"comment,omitempty"`
	User    *models.User    `json:"user,omitempty"`
	At      time.Time       `json:"at"`
	Unseen  bool            `json:"unseen"`
}

type fetchFunc func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error)

type lister struct {
	fetch fetchFunc
	// clears is the notification signal cleared once the listing is viewed.
	clears SeenKind
}

var listers = [...]lister{
	KindThreads: {fetch: func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error) {
		rows, err := s.store.ListFolloweeThreads(ctx, userID, offset, limit)
		return commentRows(rows, nil), err
	}},
	KindReplies: {clears: SeenReplies, fetch: func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error) {
		rows, err := s.store.ListReplies(ctx, userID, offset, limit)
		return commentRows(rows, func(c *models.Comment) bool { return c.ReplySeenAt == 0 }), err
	}},
	KindMentions: {clears: SeenMentions, fetch: func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error) {
		rows, err := s.store.ListMentions(ctx, userID, offset, limit)
		return commentRows(rows, func(c *models.Comment) bool { return c.MentionSeenAt == 0 }), err
	}},
	KindFollowers: {clears: SeenFollowers, fetch: func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error) {
		bonds, err := s.store.ListFollowers(ctx, userID, offset, limit)
		rows := make([]Row, 0, len(bonds))
		for i := range bonds {
			rows = append(rows, Row{User: &bonds[i].CreatedBy, At: bonds[i].CreatedAt, Unseen: bonds[i].SeenAt == 0})
		}
		return rows, err
	}},
	KindFollowing: {fetch: func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error) {
		bonds, err := s.store.ListFollowing(ctx, userID, offset, limit)
		rows := make([]Row, 0, len(bonds))
		for i := range bonds {
			rows = append(rows, Row{User: &bonds[i].ToUser, At: bonds[i].CreatedAt})
		}
		return rows, err
	}},
	KindSaved: {fetch: func(s *Service, ctx context.Context, userID uint, offset, limit int) ([]Row, error) {
		saves, err := s.store.ListSaved(ctx, userID, offset, limit)
		rows := make([]Row, 0, len(saves))
		for i := range saves {
			post := saves[i].Post
			render(&post)
			rows = append(rows, Row{Comment: &post, At: saves[i].CreatedAt})
		}
		return rows, err
	}},
	KindTrending: {fetch: func(s *Service, ctx context.Context, _ uint, offset, limit int) ([]Row, error) {
		rows, err := s.store.ListTrending(ctx, s.opts.TrendingSample, offset, limit)
		return commentRows(rows, nil), err
	}},
}

func commentRows(comments []models.Comment, unseen func(*models.Comment) bool) []Row {
	rows := make([]Row, 0, len(comments))
	for i := range comments {
		c := &comments[i]
		render(c)
		row := Row{Comment: c, At: c.CreatedAt}
		if unseen != nil {
			row.Unseen = unseen(c)
		}
		rows = append(rows, row)
	}
	return rows
}

// List returns one page of kind for userID. Viewing a notification listing
// clears its unseen signal; the returned rows still carry the flags they had
// before the clear.
func (s *Service) List(ctx context.Context, userID uint, kind Kind, page int) (utils.Page[Row], error) {
	const op = "services.List"
	lg := logger.From(ctx).With(
		slog.String("op", op),
		slog.String("kind", kind.String()),
		slog.Int("page", page),
	)

	if kind < 0 || int(kind) >= len(listers) {
		return utils.Page[Row]{}, reject(lg, op, invalid("kind", "unknown listing"))
	}
	if kind == KindTrending {
		return s.Trending(ctx, page)
	}

	l := listers[kind]
	p, err := utils.Paginate(ctx, page, s.opts.PageSize, func(ctx context.Context, offset, limit int) ([]Row, error) {
		return l.fetch(s, ctx, userID, offset, limit)
	})
	if err != nil {
		return utils.Page[Row]{}, storeErr(lg, op, err)
	}

	if l.clears != "" {
		if _, err := s.MarkSeen(ctx, userID, l.clears); err != nil {
			return utils.Page[Row]{}, err
		}
	}
	return p, nil
}

func trendingKey(page int) string {
	return fmt.Sprintf("trending:%d", page)
}

// Trending ranks the most recent threads by score. Pages are cached for the
// configured TTL when a cache is set.
func (s *Service) Trending(ctx context.Context, page int) (utils.Page[Row], error) {
	const op = "services.Trending"
	lg := logger.From(ctx).With(slog.String("op", op), slog.Int("page", page))

	if page < 1 {
		page = 1
	}
	key := trendingKey(page)
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, key); ok {
			var p utils.Page[Row]
			if err := json.Unmarshal(b, &p); err == nil {
				return p, nil
			}
			lg.Warn("drop undecodable cache entry", slog.String("key", key))
			s.cache.Delete(ctx, key)
		}
	}

	l := listers[KindTrending]
	p, err := utils.Paginate(ctx, page, s.opts.PageSize, func(ctx context.Context, offset, limit int) ([]Row, error) {
		return l.fetch(s, ctx, 0, offset, limit)
	})
	if err != nil {
		return utils.Page[Row]{}, storeErr(lg, op, err)
	}

	if s.cache != nil {
		if b, err := json.Marshal(p); err == nil {
			s.cache.Set(ctx, key, b, s.opts.TrendingTTL)
		}
	}
	return p, nil
}
