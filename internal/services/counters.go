package services

import (
	"context"
	"fmt"
	"log/slog"

	"thicket/internal/logger"
	"thicket/internal/metrics"
	"thicket/internal/models"
	"thicket/internal/storage"
)

// SeenKind names a notification signal that can be cleared.
type SeenKind string

const (
	SeenFollowers SeenKind = "followers"
	SeenMentions  SeenKind = "mentions"
	SeenReplies   SeenKind = "replies"
)

// Counters returns the live unseen counts of userID.
func (s *Service) Counters(ctx context.Context, userID uint) (storage.Counters, error) {
	const op = "services.Counters"
	c, err := s.store.Counters(ctx, userID)
	if err != nil {
		return storage.Counters{}, storeErr(logger.From(ctx).With(slog.String("op", op)), op, err)
	}
	return c, nil
}

// MarkSeen stamps every unseen row of kind created up to now with the current
// watermark. Rows created afterwards stay unseen.
func (s *Service) MarkSeen(ctx context.Context, userID uint, kind SeenKind) (int64, error) {
	const op = "services.MarkSeen"
	lg := logger.From(ctx).With(
		slog.String("op", op),
		slog.Uint64("user_id", uint64(userID)),
		slog.String("kind", string(kind)),
	)

	at := models.Watermark(s.now())
	var (
		n   int64
		err error
	)
	switch kind {
	case SeenFollowers:
		n, err = s.store.MarkFollowersSeen(ctx, userID, at)
	case SeenMentions:
		n, err = s.store.MarkMentionsSeen(ctx, userID, at)
	case SeenReplies:
		n, err = s.store.MarkRepliesSeen(ctx, userID, at)
	default:
		return 0, reject(lg, op, invalid("kind", fmt.Sprintf("unknown notification kind %q", kind)))
	}
	if err != nil {
		return 0, storeErr(lg, op, err)
	}
	if n > 0 {
		metrics.NotificationsCleared.WithLabelValues(string(kind)).Add(float64(n))
		lg.Debug("notifications cleared", slog.Int64("count", n))
	}
	return n, nil
}
